package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Source)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 400, cfg.Preview.MaxRequestsPer5Min)
	assert.Equal(t, AssetModeCache, cfg.Assets.Mode)
	assert.True(t, cfg.Images.Enabled)
	assert.False(t, cfg.Admin.Enabled)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 4000
plugins:
  path: /srv/plugins
preview:
  max_requests_per_5_min: 10
logging:
  level: warn
`), 0o644))

	t.Setenv("PORT", "5000")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("ENABLE_IMAGE_GENERATION", "false")
	t.Setenv("USE_CACHE", "false")
	t.Setenv("ADMIN_MODE", "true")
	t.Setenv("CACHE_PATH", "/tmp/cache")
	t.Setenv("DEVICE_DATA_FILE", "/etc/device.json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "/srv/plugins", cfg.Plugins.Path)
	assert.Equal(t, 10, cfg.Preview.MaxRequestsPer5Min)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Images.Enabled)
	assert.Equal(t, AssetModeProxy, cfg.Assets.Mode)
	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, "/tmp/cache", cfg.Assets.CacheDir)
	assert.Equal(t, "/etc/device.json", cfg.Device.DataFile)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server port"},
		{"no plugins path", func(c *Config) { c.Plugins.Path = "" }, "PLUGINS_PATH"},
		{"zero rate limit", func(c *Config) { c.Preview.MaxRequestsPer5Min = 0 }, "MAX_REQUESTS_PER_5_MIN"},
		{"bad asset mode", func(c *Config) { c.Assets.Mode = "mirror" }, "assets mode"},
		{"short jwt secret", func(c *Config) {
			c.Admin.Enabled = true
			c.Admin.Password = "pw"
			c.Admin.JWTSecret = "short"
		}, "at least 32"},
		{"jwt without password", func(c *Config) {
			c.Admin.Enabled = true
			c.Admin.JWTSecret = strings.Repeat("x", 32)
		}, "ADMIN_PASSWORD"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestServerConfig_BaseURL(t *testing.T) {
	s := ServerConfig{Port: 3000}
	assert.Equal(t, "http://localhost:3000", s.BaseURL())

	s.PublicURL = "http://preview.local/"
	assert.Equal(t, "http://preview.local", s.BaseURL())
}

func TestDumpExampleConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DumpExampleConfig(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# ====="))
	assert.Contains(t, out, "max_requests_per_5_min: 400")

	var parsed Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "./plugins", parsed.Plugins.Path)
	assert.NoError(t, parsed.Validate())
}

func TestInitLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := initLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}
