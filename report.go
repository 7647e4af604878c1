package main

import (
	"errors"
	"fmt"

	"github.com/chaos-io/iconprep/imgio"
)

// report 把任意失败收敛成一行提示，不区分退出码
func report(err error) string {
	var decodeErr *imgio.DecodeError
	var ioErr *imgio.IOError
	switch {
	case errors.As(err, &decodeErr):
		return fmt.Sprintf("Error processing image: cannot read %s: %v", decodeErr.Source, decodeErr.Err)
	case errors.As(err, &ioErr):
		return fmt.Sprintf("Error processing image: cannot write %s: %v", ioErr.Path, ioErr.Err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
