package icon

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

var ErrInvalidSize = errors.New("invalid target size")

// Resize Lanczos3 缩放到固定宽高，不保持宽高比
func Resize(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty source image", ErrInvalidSize)
	}

	resized := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	return imaging.Clone(resized), nil
}
