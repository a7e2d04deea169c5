package imaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	DisplayWidth  = 800
	DisplayHeight = 480
	DefaultDelay  = 1000 * time.Millisecond
)

// Capturer takes a PNG screenshot of a page
type Capturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}

// Screenshotter captures pages with a headless Chromium
type Screenshotter struct {
	browserBin string
	width      int
	height     int
	delay      time.Duration
	logger     *slog.Logger
}

// NewScreenshotter creates a screenshotter. An empty browserBin lets rod find
// or download a browser.
func NewScreenshotter(browserBin string, delay time.Duration, logger *slog.Logger) *Screenshotter {
	if logger == nil {
		logger = slog.Default()
	}
	if delay < 0 {
		delay = DefaultDelay
	}
	return &Screenshotter{
		browserBin: browserBin,
		width:      DisplayWidth,
		height:     DisplayHeight,
		delay:      delay,
		logger:     logger.With("component", "screenshotter"),
	}
}

// Capture loads url at display size, waits for load plus the configured delay
// and returns a PNG
func (s *Screenshotter) Capture(ctx context.Context, url string) ([]byte, error) {
	l := launcher.New().
		Context(ctx).
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Headless(true)
	if s.browserBin != "" {
		l = l.Bin(s.browserBin)
	}
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.width,
		Height:            s.height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed waiting for page load: %w", err)
	}

	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	png, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	s.logger.Debug("Captured screenshot", "url", url, "bytes", len(png))
	return png, nil
}
