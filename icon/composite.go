package icon

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Composite 在纯色画布上按 alpha 叠加前景，前景贴在原点，输出不透明
func Composite(fg image.Image, fill color.Color) *image.NRGBA {
	b := fg.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	bg := opaque(fill)
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), fg, b.Min, draw.Over)
	return canvas
}

func opaque(c color.Color) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 255
	return n
}
