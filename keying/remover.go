package keying

import (
	"context"
	"image"
)

// Remover 去除背景，返回带透明通道的新图
type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// NopRemover 原样返回
type NopRemover struct{}

func (NopRemover) Remove(_ context.Context, img image.Image) (image.Image, error) {
	return img, nil
}
