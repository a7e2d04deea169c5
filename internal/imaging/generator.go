package imaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/trmnlp/trmnlp/internal/metrics"
)

// ErrDisabled is returned when image generation is switched off
var ErrDisabled = errors.New("image generation is disabled")

// Generator renders a preview URL into a device BMP
type Generator struct {
	enabled   bool
	capturer  Capturer
	converter *Converter
	logger    *slog.Logger
}

// NewGenerator creates a generator
func NewGenerator(enabled bool, capturer Capturer, converter *Converter, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		enabled:   enabled,
		capturer:  capturer,
		converter: converter,
		logger:    logger.With("component", "image_generator"),
	}
}

// Enabled reports whether image generation is on
func (g *Generator) Enabled() bool {
	return g != nil && g.enabled
}

// Generate screenshots previewURL and converts it to BMP
func (g *Generator) Generate(ctx context.Context, previewURL string) ([]byte, error) {
	if !g.Enabled() {
		return nil, ErrDisabled
	}

	start := time.Now()
	png, err := g.capturer.Capture(ctx, previewURL)
	if err != nil {
		metrics.ImageGenerationErrorsTotal.Inc()
		g.logger.Error("Screenshot failed", "url", previewURL, "error", err)
		return nil, err
	}

	bmp, err := g.converter.ToBMP(ctx, png)
	if err != nil {
		metrics.ImageGenerationErrorsTotal.Inc()
		g.logger.Error("Image conversion failed", "url", previewURL, "error", err)
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.ImageGenerationDurationSeconds.Observe(elapsed.Seconds())
	g.logger.Info("Generated image",
		"url", previewURL,
		"bytes", len(bmp),
		"duration_ms", elapsed.Milliseconds(),
	)
	return bmp, nil
}
