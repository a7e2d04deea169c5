package plugins

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadSettings_TOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), `
name = "Weather"
strategy = "polling"
url = "https://api.example.com/{API_KEY}"
refresh_interval = 15
requires_auth_headers = true

[polling_headers]
Authorization = "{TOKEN}"

[custom_fields_values]
city = "Berlin"
`)

	s, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, "Weather", s.Name)
	assert.Equal(t, StrategyPolling, s.EffectiveStrategy())
	assert.Equal(t, "https://api.example.com/{API_KEY}", s.PollingURLTemplate())
	assert.Equal(t, 15, s.RefreshInterval)
	assert.True(t, s.RequiresAuthHeaders)
	assert.Equal(t, "Berlin", s.CustomFields["city"])
	assert.Equal(t, "GET", s.Method())

	headers, ok := s.PollingHeaders.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "{TOKEN}", headers["Authorization"])

	ps := s.PluginSettings()
	assert.Equal(t, "Weather", ps["name"])
	assert.Contains(t, ps, "custom_fields_values")
}

func TestLoadSettings_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "settings.yml"), `
name: Quotes
strategy: static
polling_headers: |
  Authorization: Bearer {TOKEN}
  Accept=application/json
`)

	s, err := LoadSettings(dir)
	require.NoError(t, err)

	assert.Equal(t, "Quotes", s.Name)
	assert.Equal(t, StrategyStatic, s.EffectiveStrategy())
	assert.NotNil(t, s.CustomFields, "custom fields default to an empty map")
	assert.Empty(t, s.CustomFields)

	_, isString := s.PollingHeaders.(string)
	assert.True(t, isString)
}

func TestParseSettings_PollingVerb(t *testing.T) {
	tests := []struct {
		verb string
		want string
	}{
		{"", "GET"},
		{"get", "GET"},
		{"Post", "POST"},
		{" POST ", "POST"},
	}
	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			s, err := ParseSettings("config.toml", []byte(`polling_verb = "`+tt.verb+`"`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Method())
		})
	}

	_, err := ParseSettings("config.toml", []byte(`polling_verb = "Delete"`))
	assert.Error(t, err)
}

func TestLoadSettings_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSettings(t.TempDir())
		assert.True(t, errors.Is(err, ErrSettingsNotFound))
	})

	t.Run("unparsable", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "config.toml"), "name = = broken")
		_, err := LoadSettings(dir)
		assert.True(t, errors.Is(err, ErrSettingsNotFound))
	})

	t.Run("invalid strategy", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "config.toml"), `strategy = "carrier-pigeon"`)
		_, err := LoadSettings(dir)
		assert.True(t, errors.Is(err, ErrSettingsNotFound))
	})
}

func TestEffectiveStrategy(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     Strategy
	}{
		{"declared webhook", Settings{Strategy: StrategyWebhook, URL: "https://x"}, StrategyWebhook},
		{"inferred polling", Settings{URL: "https://x"}, StrategyPolling},
		{"polling_url wins", Settings{URL: "https://public", PollingURL: "https://poll"}, StrategyPolling},
		{"no url", Settings{}, StrategyStatic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.EffectiveStrategy())
		})
	}
}

func TestLoadSample(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadSample(dir)
	assert.True(t, errors.Is(err, ErrSampleNotFound))

	writeFile(t, filepath.Join(dir, SampleFile), `{"temp": 21}`)
	sample, err := LoadSample(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"temp": float64(21)}, sample)
}

func TestReadLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ViewsDir, "half_horizontal.liquid"), "<div>{{ temp }}</div>")

	got, err := ReadLayout(dir, "half-horizontal.html")
	require.NoError(t, err)
	assert.Equal(t, "<div>{{ temp }}</div>", got)

	_, err = ReadLayout(dir, "../../etc/passwd")
	assert.True(t, errors.Is(err, ErrLayoutNotFound))

	_, err = ReadLayout(dir, "full")
	assert.True(t, errors.Is(err, ErrLayoutNotFound))
}
