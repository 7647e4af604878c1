package keying

import (
	"image"
	"image/color"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
)

const dominantCount = 5

type Swatch struct {
	Hex    string
	Weight float64
}

type Report struct {
	Size      image.Point
	Reference color.NRGBA
	// HasAlpha 存在任何非 255 的 alpha，即图片已经带有透明信息
	HasAlpha bool
	Dominant []Swatch
}

// Inspect 汇总抠图前需要关注的信息：参考色、是否已有透明通道、主色
func Inspect(img image.Image, samplePoint image.Point) (*Report, error) {
	src := imaging.Clone(img)

	ref, err := sampleAt(src, samplePoint)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Size:      src.Bounds().Size(),
		Reference: ref,
		HasAlpha:  hasUsefulAlpha(src),
	}
	for _, c := range dominantcolor.FindWeight(src, dominantCount) {
		report.Dominant = append(report.Dominant, Swatch{
			Hex:    dominantcolor.Hex(c.RGBA),
			Weight: c.Weight,
		})
	}
	return report, nil
}

// hasUsefulAlpha 只要存在非 255（非完全不透明），就认为已有抠图
func hasUsefulAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			return true
		}
	}
	return false
}
