package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/chaos-io/iconprep/config"
	"github.com/chaos-io/iconprep/icon"
	"github.com/chaos-io/iconprep/imgio"
	"github.com/chaos-io/iconprep/keying"
	"github.com/chaos-io/iconprep/server"
	"github.com/chaos-io/iconprep/util"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "iconprep",
		Usage: "prepare launcher icon assets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Sources: cli.EnvVars("ICONPREP_CONFIG"),
				Usage:   "YAML config file",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Sources: cli.EnvVars("ICONPREP_DEBUG"),
				Usage:   "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := slog.LevelInfo
			gin.SetMode(gin.ReleaseMode)
			if cmd.Bool("debug") {
				level = slog.LevelDebug
				gin.SetMode(gin.DebugMode)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return ctx, nil
		},
		Commands: []*cli.Command{
			keyCommand(),
			resizeCommand(),
			compositeCommand(),
			iconsCommand(),
			inspectCommand(),
			serveCommand(),
		},
	}
}

func inFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "in",
		Aliases: []string{"i"},
		Sources: cli.EnvVars("ICONPREP_INPUT"),
		Usage:   "input image path or http(s) URL",
	}
}

func outFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Sources: cli.EnvVars("ICONPREP_OUTPUT"),
		Usage:   "output PNG path, overwritten if present",
	}
}

func toleranceFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "tolerance",
		Sources: cli.EnvVars("ICONPREP_TOLERANCE"),
		Usage:   "max Manhattan RGB distance treated as background",
	}
}

func sampleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "sample-x", Usage: "x of the background sample point"},
		&cli.IntFlag{Name: "sample-y", Usage: "y of the background sample point"},
	}
}

func sizeFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "size",
		Sources: cli.EnvVars("ICONPREP_TARGET_SIZE"),
		Usage:   "output square dimension in pixels",
	}
}

func fillFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "fill",
		Sources: cli.EnvVars("ICONPREP_FILL_COLOR"),
		Usage:   "hex fill color for the opaque icon",
	}
}

// loadConfig 配置文件打底，命令行显式给出的参数覆盖
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return cfg, err
	}

	for _, f := range cmd.Flags {
		name := f.Names()[0]
		if !cmd.IsSet(name) {
			continue
		}
		switch name {
		case "in":
			cfg.Input = cmd.String(name)
		case "out":
			cfg.Output = cmd.String(name)
		case "assets-dir":
			cfg.AssetsDir = cmd.String(name)
		case "tolerance":
			cfg.Tolerance = cmd.Int(name)
		case "sample-x":
			cfg.SamplePoint.X = cmd.Int(name)
		case "sample-y":
			cfg.SamplePoint.Y = cmd.Int(name)
		case "size":
			cfg.TargetSize = cmd.Int(name)
		case "fill":
			cfg.FillColor = cmd.String(name)
		case "mode":
			cfg.Mode = config.Mode(cmd.String(name))
		case "schedule":
			cfg.Schedule = cmd.String(name)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func requireParam(name, value string) error {
	if value == "" {
		return goerr.New("missing required parameter --"+name, goerr.V("name", name))
	}
	return nil
}

func keyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "make the background color transparent",
		Flags: append([]cli.Flag{inFlag(), outFlag(), toleranceFlag()}, sampleFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			defer util.Trace("key")()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireParam("in", cfg.Input); err != nil {
				return err
			}
			if err := requireParam("out", cfg.Output); err != nil {
				return err
			}

			k := keying.New(
				keying.WithTolerance(cfg.Tolerance),
				keying.WithSamplePoint(cfg.SamplePoint.Image()),
			)

			if !imgio.IsURL(cfg.Input) {
				_, err = k.KeyFile(cfg.Input, cfg.Output)
				return err
			}

			img, err := imgio.Load(ctx, nil, cfg.Input)
			if err != nil {
				return err
			}
			res, err := k.Key(img)
			if err != nil {
				return err
			}
			return imgio.SavePNG(cfg.Output, res.Image)
		},
	}
}

func resizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "resize",
		Usage: "stretch an image to exact dimensions (Lanczos)",
		Flags: []cli.Flag{
			inFlag(), outFlag(), sizeFlag(),
			&cli.IntFlag{Name: "width", Usage: "target width, defaults to --size"},
			&cli.IntFlag{Name: "height", Usage: "target height, defaults to --size"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			defer util.Trace("resize")()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireParam("in", cfg.Input); err != nil {
				return err
			}
			if err := requireParam("out", cfg.Output); err != nil {
				return err
			}

			width, height := cfg.TargetSize, cfg.TargetSize
			if cmd.IsSet("width") {
				width = cmd.Int("width")
			}
			if cmd.IsSet("height") {
				height = cmd.Int("height")
			}

			img, err := imgio.Load(ctx, nil, cfg.Input)
			if err != nil {
				return err
			}
			resized, err := icon.Resize(img, width, height)
			if err != nil {
				return err
			}
			return imgio.SavePNG(cfg.Output, resized)
		},
	}
}

func compositeCommand() *cli.Command {
	return &cli.Command{
		Name:  "composite",
		Usage: "paste an image onto a solid fill color",
		Flags: []cli.Flag{inFlag(), outFlag(), fillFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			defer util.Trace("composite")()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireParam("in", cfg.Input); err != nil {
				return err
			}
			if err := requireParam("out", cfg.Output); err != nil {
				return err
			}

			fill, err := cfg.Fill()
			if err != nil {
				return err
			}
			img, err := imgio.Load(ctx, nil, cfg.Input)
			if err != nil {
				return err
			}
			return imgio.SavePNG(cfg.Output, icon.Composite(img, fill))
		},
	}
}

func iconsCommand() *cli.Command {
	return &cli.Command{
		Name:  "icons",
		Usage: "write adaptive-icon.png and icon.png into the assets directory",
		Flags: append([]cli.Flag{
			inFlag(), sizeFlag(), fillFlag(), toleranceFlag(),
			&cli.StringFlag{
				Name:    "assets-dir",
				Sources: cli.EnvVars("ICONPREP_ASSETS_DIR"),
				Usage:   "directory receiving the icon files",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "layered (transparent + opaque) or plain (resized source twice)",
			},
			&cli.BoolFlag{
				Name:  "no-key",
				Usage: "input is already transparent, skip background keying",
			},
			&cli.StringFlag{
				Name:    "remover-url",
				Sources: cli.EnvVars("ICONPREP_REMOVER_URL"),
				Usage:   "delegate keying to a remote iconprep /v1/key endpoint",
			},
			&cli.StringFlag{
				Name:    "schedule",
				Sources: cli.EnvVars("ICONPREP_SCHEDULE"),
				Usage:   "cron expression; regenerate on this schedule until interrupted",
			},
		}, sampleFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireParam("in", cfg.Input); err != nil {
				return err
			}
			if err := requireParam("assets-dir", cfg.AssetsDir); err != nil {
				return err
			}

			var remover keying.Remover
			switch {
			case cmd.Bool("no-key"):
			case cmd.String("remover-url") != "":
				remover = keying.NewRemoteRemover(cmd.String("remover-url"), nil)
			default:
				remover = keying.New(
					keying.WithTolerance(cfg.Tolerance),
					keying.WithSamplePoint(cfg.SamplePoint.Image()),
				)
			}
			g, err := icon.NewGenerator(cfg, remover)
			if err != nil {
				return err
			}

			run := func() error {
				defer util.Trace("icons")()

				img, err := imgio.Load(ctx, nil, cfg.Input)
				if err != nil {
					return err
				}
				set, err := g.Generate(ctx, img)
				if err != nil {
					return err
				}
				return set.WriteTo(cfg.AssetsDir)
			}

			if cfg.Schedule == "" {
				return run()
			}
			return runScheduled(ctx, cfg.Schedule, func() {
				if err := run(); err != nil {
					slog.Error(report(err))
				}
			})
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "print the background sample and dominant colors",
		Flags: append([]cli.Flag{inFlag()}, sampleFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := requireParam("in", cfg.Input); err != nil {
				return err
			}

			img, err := imgio.Load(ctx, nil, cfg.Input)
			if err != nil {
				return err
			}
			r, err := keying.Inspect(img, cfg.SamplePoint.Image())
			if err != nil {
				return err
			}
			return printReport(writer(cmd), filepath.Base(cfg.Input), r)
		},
	}
}

func printReport(w io.Writer, name string, r *keying.Report) error {
	ref := r.Reference
	if _, err := fmt.Fprintf(w, "%s: %dx%d\n", name, r.Size.X, r.Size.Y); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "background: #%02x%02x%02x alpha=%d\n", ref.R, ref.G, ref.B, ref.A)
	_, _ = fmt.Fprintf(w, "has alpha: %t\n", r.HasAlpha)
	for _, s := range r.Dominant {
		_, _ = fmt.Fprintf(w, "  %s %.3f\n", s.Hex, s.Weight)
	}
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "expose the operations over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("ICONPREP_ADDR"),
				Usage:   "listen address",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := server.New(cfg)
			if err != nil {
				return err
			}
			return s.Run(ctx, cmd.String("addr"))
		},
	}
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
