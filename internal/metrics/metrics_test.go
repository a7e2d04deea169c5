package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats struct{ count, capacity int }

func (f *fixedStats) Stats() (int, int) { return f.count, f.capacity }

func gauges(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			out[mf.GetName()] = m.GetGauge().GetValue()
		}
	}
	return out
}

func TestTrackRateLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := &fixedStats{count: 3, capacity: 400}
	require.NoError(t, TrackRateLimit(reg, stats))

	assert.Equal(t, map[string]float64{
		"trmnlp_rate_limit_used":     3,
		"trmnlp_rate_limit_capacity": 400,
	}, gauges(t, reg))

	stats.count = 7
	assert.Equal(t, float64(7), gauges(t, reg)["trmnlp_rate_limit_used"])

	assert.Error(t, TrackRateLimit(reg, stats), "gauges register once per registry")
}
