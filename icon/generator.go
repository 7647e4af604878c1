package icon

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"

	"github.com/chaos-io/iconprep/config"
	"github.com/chaos-io/iconprep/imgio"
	"github.com/chaos-io/iconprep/keying"
)

const (
	AdaptiveIconName = "adaptive-icon.png"
	IconName         = "icon.png"
)

type Generator struct {
	size  int
	fill  color.NRGBA
	mode  config.Mode
	RemBG keying.Remover
}

// NewGenerator remover 为 nil 时认为输入已经抠过图
func NewGenerator(cfg config.Config, remover keying.Remover) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fill, err := cfg.Fill()
	if err != nil {
		return nil, err
	}
	if remover == nil {
		remover = keying.NopRemover{}
	}
	return &Generator{
		size:  cfg.TargetSize,
		fill:  fill,
		mode:  cfg.Mode,
		RemBG: remover,
	}, nil
}

// Set 一次生成的两张图
//
//	Adaptive 透明前景（Android adaptive icon）
//	Icon     叠加底色后的不透明图（iOS / 旧版本）
type Set struct {
	Adaptive *image.NRGBA
	Icon     *image.NRGBA
}

func (g *Generator) Generate(ctx context.Context, src image.Image) (*Set, error) {
	if g.mode == config.ModePlain {
		resized, err := Resize(src, g.size, g.size)
		if err != nil {
			return nil, err
		}
		return &Set{Adaptive: resized, Icon: resized}, nil
	}

	fg, err := g.RemBG.Remove(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("remove background: %w", err)
	}

	slog.Debug("foreground ready", "size", fg.Bounds().Size())

	adaptive, err := Resize(fg, g.size, g.size)
	if err != nil {
		return nil, err
	}

	return &Set{
		Adaptive: adaptive,
		Icon:     Composite(adaptive, g.fill),
	}, nil
}

// WriteTo 写入 dir/adaptive-icon.png 与 dir/icon.png
func (s *Set) WriteTo(dir string) error {
	if err := imgio.SavePNG(filepath.Join(dir, AdaptiveIconName), s.Adaptive); err != nil {
		return err
	}
	slog.Info("saved adaptive icon", "path", filepath.Join(dir, AdaptiveIconName))

	if err := imgio.SavePNG(filepath.Join(dir, IconName), s.Icon); err != nil {
		return err
	}
	slog.Info("saved icon", "path", filepath.Join(dir, IconName))
	return nil
}
