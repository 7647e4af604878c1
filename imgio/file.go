package imgio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	nhttp "github.com/chaos-io/iconprep/util/http"
)

// Open 打开本地图片
func Open(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	defer func() {
		_ = file.Close()
	}()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	return img, nil
}

// Decode 从内存解码图片，source 只用于错误信息
func Decode(source string, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	return img, nil
}

// ErrTooLarge 图片声明的尺寸超过上限
var ErrTooLarge = errors.New("image too large")

// DecodeLimited 先读取头部尺寸，宽或高超过 maxDim 时不做完整解码
func DecodeLimited(source string, data []byte, maxDim int) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	if cfg.Width > maxDim || cfg.Height > maxDim {
		return nil, &DecodeError{
			Source: source,
			Err:    fmt.Errorf("%w: %dx%d exceeds %d", ErrTooLarge, cfg.Width, cfg.Height, maxDim),
		}
	}
	return Decode(source, data)
}

// Download 下载图片
func Download(ctx context.Context, cli nhttp.IClient, url string) (image.Image, error) {
	var data []byte
	reqParam := &nhttp.RequestParam{
		RequestURI: url,
		Method:     http.MethodGet,
		Response:   &data,
	}
	if err := cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, &DecodeError{Source: url, Err: err}
	}
	return Decode(url, data)
}

// Load 按前缀区分本地路径和 URL
func Load(ctx context.Context, cli nhttp.IClient, source string) (image.Image, error) {
	if IsURL(source) {
		if cli == nil {
			cli = nhttp.NewHTTPClient()
		}
		return Download(ctx, cli, source)
	}
	return Open(source)
}

func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// SavePNG 编码为 PNG 写入 path，已存在的文件会被覆盖
func SavePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return &IOError{Path: path, Err: err}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}

	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return &IOError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}

// EncodePNG 编码为 PNG 字节
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
