package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"

	"github.com/chaos-io/iconprep/config"
	"github.com/chaos-io/iconprep/icon"
	"github.com/chaos-io/iconprep/imgio"
	"github.com/chaos-io/iconprep/keying"
)

const (
	HeaderRequestID          = "X-Request-Id"
	HeaderAlreadyTransparent = "X-Already-Transparent"

	formImage       = "image"
	maxUploadMemory = 32 << 20
	maxDimension    = 8192
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg    config.Config
	engine *gin.Engine
}

func New(cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TargetSize > maxDimension {
		return nil, fmt.Errorf("target_size %d exceeds %d", cfg.TargetSize, maxDimension)
	}

	engine := gin.New()
	engine.MaxMultipartMemory = maxUploadMemory
	engine.Use(gin.Recovery(), requestID())

	s := &Server{cfg: cfg, engine: engine}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/v1")
	v1.POST("/key", s.handleKey)
	v1.POST("/resize", s.handleResize)
	v1.POST("/composite", s.handleComposite)
	v1.POST("/icons", s.handleIcons)

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 阻塞直到 ctx 结束，随后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ksuid.New().String()
		c.Header(HeaderRequestID, id)
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
		)
	}
}

func (s *Server) handleKey(c *gin.Context) {
	img, ok := readImage(c)
	if !ok {
		return
	}

	tolerance, ok := intQuery(c, "tolerance", s.cfg.Tolerance)
	if !ok {
		return
	}
	if tolerance < 0 {
		badRequest(c, fmt.Errorf("tolerance must not be negative: %d", tolerance))
		return
	}

	res, err := keying.New(
		keying.WithTolerance(tolerance),
		keying.WithSamplePoint(s.cfg.SamplePoint.Image()),
	).Key(img)
	if err != nil {
		badRequest(c, err)
		return
	}

	c.Header(HeaderAlreadyTransparent, strconv.FormatBool(res.AlreadyTransparent))
	writePNG(c, res.Image)
}

func (s *Server) handleResize(c *gin.Context) {
	img, ok := readImage(c)
	if !ok {
		return
	}

	width, ok := intQuery(c, "width", s.cfg.TargetSize)
	if !ok {
		return
	}
	height, ok := intQuery(c, "height", s.cfg.TargetSize)
	if !ok {
		return
	}
	if width > maxDimension || height > maxDimension {
		badRequest(c, fmt.Errorf("size %dx%d exceeds %d", width, height, maxDimension))
		return
	}

	resized, err := icon.Resize(img, width, height)
	if err != nil {
		badRequest(c, err)
		return
	}
	writePNG(c, resized)
}

func (s *Server) handleComposite(c *gin.Context) {
	img, ok := readImage(c)
	if !ok {
		return
	}

	fill, err := config.ParseColor(c.DefaultQuery("fill", s.cfg.FillColor))
	if err != nil {
		badRequest(c, err)
		return
	}
	writePNG(c, icon.Composite(img, fill))
}

func (s *Server) handleIcons(c *gin.Context) {
	img, ok := readImage(c)
	if !ok {
		return
	}

	variant := c.DefaultQuery("variant", "icon")
	if variant != "icon" && variant != "adaptive" {
		badRequest(c, fmt.Errorf("unknown variant %q", variant))
		return
	}

	g, err := icon.NewGenerator(s.cfg, keying.New(
		keying.WithTolerance(s.cfg.Tolerance),
		keying.WithSamplePoint(s.cfg.SamplePoint.Image()),
	))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	set, err := g.Generate(c.Request.Context(), img)
	if err != nil {
		badRequest(c, err)
		return
	}

	if variant == "adaptive" {
		writePNG(c, set.Adaptive)
		return
	}
	writePNG(c, set.Icon)
}

func readImage(c *gin.Context) (image.Image, bool) {
	fh, err := c.FormFile(formImage)
	if err != nil {
		badRequest(c, fmt.Errorf("missing form file %q: %w", formImage, err))
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return nil, false
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, err)
		return nil, false
	}

	img, err := imgio.DecodeLimited(fh.Filename, data, maxDimension)
	if err != nil {
		badRequest(c, err)
		return nil, false
	}
	return img, true
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid %s %q", key, raw))
		return 0, false
	}
	return v, true
}

func writePNG(c *gin.Context, img image.Image) {
	data, err := imgio.EncodePNG(img)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func badRequest(c *gin.Context, err error) {
	var decodeErr *imgio.DecodeError
	if errors.As(err, &decodeErr) {
		slog.Debug("decode failed", "source", decodeErr.Source, "error", decodeErr.Err)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
