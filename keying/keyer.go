package keying

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/chaos-io/iconprep/imgio"
)

const DefaultTolerance = 40

var ErrSampleOutOfBounds = errors.New("sample point outside image bounds")

// 背景像素统一替换成的颜色，RGB 保持白色
var transparent = color.NRGBA{R: 255, G: 255, B: 255, A: 0}

type Keyer struct {
	tolerance   int
	samplePoint image.Point
}

type Option func(*Keyer)

func WithTolerance(tolerance int) Option {
	return func(k *Keyer) {
		k.tolerance = tolerance
	}
}

// WithSamplePoint 参考色的采样坐标，相对于图片左上角
func WithSamplePoint(p image.Point) Option {
	return func(k *Keyer) {
		k.samplePoint = p
	}
}

func New(opts ...Option) *Keyer {
	k := &Keyer{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

type Result struct {
	Image *image.NRGBA
	// AlreadyTransparent 采样点本身 alpha 为 0，Image 只是输入的拷贝
	AlreadyTransparent bool
	Reference          color.NRGBA
	Keyed              int
}

// Key 以采样点颜色为背景色，把曼哈顿距离小于 tolerance 的像素替换为全透明
// 输入不会被修改
func (k *Keyer) Key(img image.Image) (*Result, error) {
	dst := imaging.Clone(img)

	ref, err := sampleAt(dst, k.samplePoint)
	if err != nil {
		return nil, err
	}

	res := &Result{Image: dst, Reference: ref}
	if ref.A == 0 {
		res.AlreadyTransparent = true
		slog.Info("image is already transparent")
		return res, nil
	}

	slog.Debug("detected background color", "color", ref, "tolerance", k.tolerance)

	r0, g0, b0 := int(ref.R), int(ref.G), int(ref.B)
	for i := 0; i < len(dst.Pix); i += 4 {
		p := dst.Pix[i : i+4 : i+4]
		diff := abs(int(p[0])-r0) + abs(int(p[1])-g0) + abs(int(p[2])-b0)
		if diff < k.tolerance {
			p[0], p[1], p[2], p[3] = transparent.R, transparent.G, transparent.B, transparent.A
			res.Keyed++
		}
	}

	return res, nil
}

func (k *Keyer) Remove(_ context.Context, img image.Image) (image.Image, error) {
	res, err := k.Key(img)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// KeyFile 解码 src，抠图后以 PNG 写入 dst
// 已经透明的图片也会原样复制到 dst
func (k *Keyer) KeyFile(src, dst string) (*Result, error) {
	img, err := imgio.Open(src)
	if err != nil {
		return nil, err
	}

	res, err := k.Key(img)
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", src, err)
	}

	if err := imgio.SavePNG(dst, res.Image); err != nil {
		return nil, err
	}

	slog.Info("saved transparent image", "path", dst, "keyed", res.Keyed)
	return res, nil
}

func sampleAt(img *image.NRGBA, p image.Point) (color.NRGBA, error) {
	pt := img.Bounds().Min.Add(p)
	if !pt.In(img.Bounds()) {
		return color.NRGBA{}, fmt.Errorf("%w: %v not in %v", ErrSampleOutOfBounds, p, img.Bounds().Size())
	}
	return img.NRGBAAt(pt.X, pt.Y), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
