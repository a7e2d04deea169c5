package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/imdario/mergo"

	"github.com/trmnlp/trmnlp/internal/device"
	"github.com/trmnlp/trmnlp/internal/metrics"
	"github.com/trmnlp/trmnlp/internal/plugins"
	"github.com/trmnlp/trmnlp/internal/ratelimit"
	"github.com/trmnlp/trmnlp/internal/resolver"
)

// authRequiredMessage is returned when a plugin needs credentials but has no .env file
const authRequiredMessage = "This plugin requires authentication headers. Please create a .env file with the required credentials."

// Service turns a plugin id and live flag into template data
type Service struct {
	registry *plugins.Registry
	device   *device.Data
	limiter  *ratelimit.Limiter
	fetcher  *Fetcher
	renderer *Renderer
	logger   *slog.Logger
}

// NewService creates the preview service
func NewService(registry *plugins.Registry, dev *device.Data, limiter *ratelimit.Limiter, fetcher *Fetcher, renderer *Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = ratelimit.New(0, 0, nil)
	}
	if fetcher == nil {
		fetcher = NewFetcher(nil, 0, logger)
	}
	if renderer == nil {
		renderer = NewRenderer(DefaultPageAssets)
	}
	return &Service{
		registry: registry,
		device:   dev,
		limiter:  limiter,
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger.With("component", "preview"),
	}
}

// Limiter returns the global fetch limiter
func (s *Service) Limiter() *ratelimit.Limiter {
	return s.limiter
}

func (s *Service) load(pluginID string) (string, *plugins.Settings, error) {
	dir, err := s.registry.Dir(pluginID)
	if err != nil {
		return "", nil, configNotFound(err)
	}
	settings, err := plugins.LoadSettings(dir)
	if err != nil {
		return "", nil, configNotFound(err)
	}
	return dir, settings, nil
}

// Data returns the merged template data for a plugin. Live data is only
// fetched for polling plugins; every other case reads sample.json.
func (s *Service) Data(ctx context.Context, pluginID string, live bool) (map[string]any, error) {
	dir, settings, err := s.load(pluginID)
	if err != nil {
		s.record("", err)
		return nil, err
	}

	strategy := settings.EffectiveStrategy()
	source := "sample"

	var data map[string]any
	if live && strategy == plugins.StrategyPolling {
		source = "live"
		data, err = s.fetchLive(ctx, dir, settings)
	} else {
		data, err = s.sample(dir)
	}
	if err != nil {
		s.record(source, err)
		return nil, err
	}

	merged, err := s.merge(data, settings)
	if err != nil {
		s.record(source, err)
		return nil, err
	}

	s.logger.Debug("Prepared preview data",
		"plugin", pluginID,
		"strategy", strategy,
		"source", source,
	)
	s.record(source, nil)
	return merged, nil
}

// Resolve builds the polling request of a plugin without sending it
func (s *Service) Resolve(pluginID string) (*resolver.RequestDescriptor, error) {
	dir, settings, err := s.load(pluginID)
	if err != nil {
		return nil, err
	}
	overrides, err := plugins.ReadOverrides(dir, s.logger)
	if err != nil {
		return nil, configNotFound(err)
	}
	return resolver.Build(settings, overrides, s.device), nil
}

// Render renders a plugin layout into a full HTML page
func (s *Service) Render(ctx context.Context, pluginID, layout string, live bool) (string, error) {
	dir, err := s.registry.Dir(pluginID)
	if err != nil {
		return "", configNotFound(err)
	}
	view, err := plugins.ReadLayout(dir, layout)
	if err != nil {
		return "", configNotFound(err)
	}

	data, err := s.Data(ctx, pluginID, live)
	if err != nil {
		return "", err
	}

	content, err := s.renderer.RenderView(view, data)
	if err != nil {
		return "", err
	}
	return s.renderer.Page(content)
}

func (s *Service) sample(dir string) (map[string]any, error) {
	sample, err := plugins.LoadSample(dir)
	if err != nil {
		return nil, configNotFound(err)
	}
	if obj, ok := sample.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"data": sample}, nil
}

func (s *Service) fetchLive(ctx context.Context, dir string, settings *plugins.Settings) (map[string]any, error) {
	if settings.RequiresAuthHeaders && !plugins.HasOverrides(dir) {
		return nil, &Error{
			Kind:       KindAuthRequired,
			Message:    authRequiredMessage,
			PluginName: settings.Name,
		}
	}

	overrides, err := plugins.ReadOverrides(dir, s.logger)
	if err != nil {
		return nil, configNotFound(err)
	}

	req := resolver.Build(settings, overrides, s.device)
	if len(req.Unresolved) > 0 {
		s.logger.Warn("Polling request has unresolved tokens",
			"plugin", settings.Name,
			"tokens", req.Unresolved,
		)
	}

	if ok, retryAfter := s.limiter.Allow(); !ok {
		metrics.RateLimitedTotal.Inc()
		return nil, &Error{
			Kind:       KindRateLimited,
			Message:    "Too many requests",
			PluginName: settings.Name,
			RetryAfter: retryAfter,
		}
	}

	return s.fetcher.Fetch(ctx, req)
}

// merge layers data <- trmnl.plugin_settings <- device data, later layers winning
func (s *Service) merge(data map[string]any, settings *plugins.Settings) (map[string]any, error) {
	if data == nil {
		data = map[string]any{}
	}

	pluginCtx := map[string]any{
		"trmnl": map[string]any{
			"plugin_settings": settings.PluginSettings(),
		},
	}
	if err := mergo.Merge(&data, pluginCtx, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge plugin settings: %w", err)
	}

	deviceData, err := s.device.Map()
	if err != nil {
		return nil, err
	}
	if len(deviceData) > 0 {
		if err := mergo.Merge(&data, deviceData, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge device data: %w", err)
		}
	}

	return data, nil
}

func (s *Service) record(source string, err error) {
	if err == nil {
		metrics.PreviewRequestsTotal.WithLabelValues(source, "ok").Inc()
		return
	}
	kind := "internal"
	var pe *Error
	if errors.As(err, &pe) {
		kind = string(pe.Kind)
	}
	metrics.PreviewErrorsTotal.WithLabelValues(kind).Inc()
	if source != "" {
		metrics.PreviewRequestsTotal.WithLabelValues(source, "error").Inc()
	}
}
