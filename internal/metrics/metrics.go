package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Preview metrics
	PreviewRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trmnlp_preview_requests_total",
		Help: "Preview data requests by data source and outcome",
	}, []string{"source", "outcome"})

	PreviewErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trmnlp_preview_errors_total",
		Help: "Preview failures by error kind",
	}, []string{"kind"})

	// Upstream fetch metrics
	UpstreamFetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trmnlp_upstream_fetch_duration_seconds",
		Help:    "Time taken by polling fetches",
		Buckets: prometheus.DefBuckets,
	})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trmnlp_rate_limited_total",
		Help: "Fetches rejected by the global rate limiter",
	})

	// Image generation metrics
	ImageGenerationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trmnlp_image_generation_duration_seconds",
		Help:    "Time taken to screenshot and convert a preview",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
	})

	ImageGenerationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trmnlp_image_generation_errors_total",
		Help: "Failed image generations",
	})

	// Asset metrics
	AssetDownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trmnlp_asset_downloads_total",
		Help: "Design-system asset downloads by outcome",
	}, []string{"outcome"})

	AssetProxyCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trmnlp_asset_proxy_cache_total",
		Help: "Asset proxy cache lookups by result",
	}, []string{"result"})

	// Registry metrics
	PluginsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trmnlp_plugins_loaded",
		Help: "Number of plugins found by the last registry scan",
	})
)

// RateLimitStats reports the usage of the live-fetch rate limiter
type RateLimitStats interface {
	Stats() (count, capacity int)
}

// TrackRateLimit exports limiter usage and capacity as gauges
func TrackRateLimit(reg prometheus.Registerer, stats RateLimitStats) error {
	used := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "trmnlp_rate_limit_used",
		Help: "Live fetches counted in the current rate-limit window",
	}, func() float64 {
		count, _ := stats.Stats()
		return float64(count)
	})
	capacity := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "trmnlp_rate_limit_capacity",
		Help: "Live fetches allowed per rate-limit window",
	}, func() float64 {
		_, c := stats.Stats()
		return float64(c)
	})

	for _, c := range []prometheus.Collector{used, capacity} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
