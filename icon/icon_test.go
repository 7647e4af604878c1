package icon

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/iconprep/config"
	"github.com/chaos-io/iconprep/imgio"
	"github.com/chaos-io/iconprep/keying"
)

var fillColor = color.NRGBA{R: 5, G: 6, B: 11, A: 255}

func getTestImage(w, h int, bg, fg color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := bg
			if x >= w/4 && x < w*3/4 && y >= h/4 && y < h*3/4 {
				c = fg
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestResize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		width, height int
		targetW       int
		targetH       int
	}{
		{name: "square up", width: 10, height: 10, targetW: 64, targetH: 64},
		{name: "wide to square", width: 40, height: 10, targetW: 32, targetH: 32},
		{name: "tall to wide", width: 5, height: 60, targetW: 48, targetH: 12},
		{name: "single pixel", width: 1, height: 1, targetW: 7, targetH: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := getTestImage(tt.width, tt.height, color.NRGBA{R: 255, A: 255}, color.NRGBA{B: 255, A: 255})
			got, err := Resize(src, tt.targetW, tt.targetH)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, tt.targetW, tt.targetH), got.Bounds())
		})
	}
}

func TestResize_InvalidSize(t *testing.T) {
	t.Parallel()

	src := getTestImage(4, 4, color.NRGBA{A: 255}, color.NRGBA{A: 255})

	_, err := Resize(src, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Resize(src, 10, -1)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Resize(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 10, 10)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestComposite_OpaqueForeground(t *testing.T) {
	t.Parallel()

	fg := getTestImage(6, 4, color.NRGBA{R: 200, G: 10, B: 10, A: 255}, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	for _, fill := range []color.Color{fillColor, color.White, color.NRGBA{R: 0, G: 255, B: 0, A: 255}} {
		got := Composite(fg, fill)
		assert.Equal(t, fg.Bounds(), got.Bounds())
		assert.Equal(t, fg.Pix, got.Pix)
	}
}

func TestComposite_TransparentForeground(t *testing.T) {
	t.Parallel()

	fg := getTestImage(4, 4, color.NRGBA{R: 255, G: 255, B: 255, A: 0}, color.NRGBA{R: 9, G: 9, B: 9, A: 255})
	got := Composite(fg, fillColor)

	assert.Equal(t, fillColor, got.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 9, G: 9, B: 9, A: 255}, got.NRGBAAt(1, 1))
	for i := 3; i < len(got.Pix); i += 4 {
		assert.Equal(t, uint8(255), got.Pix[i])
	}
}

func TestComposite_TranslucentFillIsForcedOpaque(t *testing.T) {
	t.Parallel()

	fg := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	got := Composite(fg, color.NRGBA{R: 10, G: 20, B: 30, A: 100})
	assert.Equal(t, uint8(255), got.NRGBAAt(1, 1).A)
}

func TestComposite_OffsetForeground(t *testing.T) {
	t.Parallel()

	base := getTestImage(4, 4, color.NRGBA{R: 255, G: 255, B: 255, A: 0}, color.NRGBA{R: 9, G: 9, B: 9, A: 255})
	sub := base.SubImage(image.Rect(1, 1, 3, 3))

	got := Composite(sub, fillColor)
	assert.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
	assert.Equal(t, color.NRGBA{R: 9, G: 9, B: 9, A: 255}, got.NRGBAAt(0, 0))
}

func TestGenerator_Layered(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.TargetSize = 32

	g, err := NewGenerator(cfg, keying.New())
	require.NoError(t, err)

	src := getTestImage(64, 64, color.NRGBA{R: 250, G: 250, B: 250, A: 255}, color.NRGBA{R: 30, G: 90, B: 200, A: 255})
	set, err := g.Generate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 32, 32), set.Adaptive.Bounds())
	assert.Equal(t, image.Rect(0, 0, 32, 32), set.Icon.Bounds())

	assert.Zero(t, set.Adaptive.NRGBAAt(0, 0).A)
	assert.Equal(t, fillColor, set.Icon.NRGBAAt(0, 0))
	assert.Greater(t, set.Adaptive.NRGBAAt(16, 16).A, uint8(250))
	assert.Equal(t, uint8(255), set.Icon.NRGBAAt(16, 16).A)

	dir := t.TempDir()
	require.NoError(t, set.WriteTo(dir))

	for _, name := range []string{AdaptiveIconName, IconName} {
		img, err := imgio.Open(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
	}
}

func TestGenerator_Plain(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.TargetSize = 16
	cfg.Mode = config.ModePlain

	g, err := NewGenerator(cfg, keying.New())
	require.NoError(t, err)

	src := getTestImage(20, 10, color.NRGBA{R: 250, G: 250, B: 250, A: 255}, color.NRGBA{R: 30, G: 90, B: 200, A: 255})
	set, err := g.Generate(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 16, 16), set.Icon.Bounds())
	assert.Equal(t, set.Adaptive.Pix, set.Icon.Pix)
	assert.Equal(t, uint8(255), set.Icon.NRGBAAt(0, 0).A)
}

type failingRemover struct{}

func (failingRemover) Remove(context.Context, image.Image) (image.Image, error) {
	return nil, errors.New("boom")
}

func TestGenerator_Errors(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.TargetSize = 0
	_, err := NewGenerator(cfg, nil)
	assert.Error(t, err)

	g, err := NewGenerator(config.Default(), failingRemover{})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), getTestImage(2, 2, color.NRGBA{A: 255}, color.NRGBA{A: 255}))
	assert.ErrorContains(t, err, "boom")
}

func TestGenerator_NilRemoverKeepsInput(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.TargetSize = 8

	g, err := NewGenerator(cfg, nil)
	require.NoError(t, err)

	src := getTestImage(8, 8, color.NRGBA{R: 40, G: 40, B: 40, A: 255}, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
	set, err := g.Generate(context.Background(), src)
	require.NoError(t, err)
	assert.NotZero(t, set.Adaptive.NRGBAAt(0, 0).A)
}
