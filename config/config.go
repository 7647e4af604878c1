package config

import (
	"image"
	"image/color"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	// ModeLayered 透明的 adaptive-icon + 叠加底色的 icon
	ModeLayered Mode = "layered"
	// ModePlain 两个输出都直接使用缩放后的原图
	ModePlain Mode = "plain"
)

const (
	DefaultTargetSize = 1024
	DefaultFillColor  = "#05060b"
	DefaultTolerance  = 40
)

type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func (p Point) Image() image.Point {
	return image.Pt(p.X, p.Y)
}

type Config struct {
	// TargetSize 输出正方形边长（像素）
	TargetSize int `yaml:"target_size"`
	// FillColor 不透明 icon 的底色，#rrggbb
	FillColor string `yaml:"fill_color"`
	// Tolerance 视为背景的最大 RGB 曼哈顿距离（不含）
	Tolerance int `yaml:"tolerance"`
	// SamplePoint 背景参考色的采样坐标
	SamplePoint Point `yaml:"sample_point"`
	Mode        Mode  `yaml:"mode"`

	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
	AssetsDir string `yaml:"assets_dir"`
	// Schedule cron 表达式，非空时按计划重新生成
	Schedule string `yaml:"schedule"`
}

func Default() Config {
	return Config{
		TargetSize: DefaultTargetSize,
		FillColor:  DefaultFillColor,
		Tolerance:  DefaultTolerance,
		Mode:       ModeLayered,
	}
}

// Load 读取 YAML，未出现的字段保持默认值
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, goerr.Wrap(err, "failed to read config", goerr.V("path", path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, goerr.Wrap(err, "failed to parse config", goerr.V("path", path))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, goerr.Wrap(err, "invalid config", goerr.V("path", path))
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.TargetSize <= 0 {
		return goerr.New("target_size must be positive", goerr.V("target_size", c.TargetSize))
	}
	if c.Tolerance < 0 {
		return goerr.New("tolerance must not be negative", goerr.V("tolerance", c.Tolerance))
	}
	if c.SamplePoint.X < 0 || c.SamplePoint.Y < 0 {
		return goerr.New("sample_point must not be negative", goerr.V("sample_point", c.SamplePoint))
	}
	switch c.Mode {
	case ModeLayered, ModePlain:
	default:
		return goerr.New("unknown mode", goerr.V("mode", c.Mode))
	}
	if _, err := c.Fill(); err != nil {
		return err
	}
	return nil
}

// Fill 解析 FillColor
func (c Config) Fill() (color.NRGBA, error) {
	return ParseColor(c.FillColor)
}

func ParseColor(hex string) (color.NRGBA, error) {
	col, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, goerr.Wrap(err, "invalid color", goerr.V("color", hex))
	}
	r, g, b := col.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
