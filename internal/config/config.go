// Package config
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AssetModeCache = "cache"
	AssetModeProxy = "proxy"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	CORS     CORSConfig     `yaml:"cors"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Preview  PreviewConfig  `yaml:"preview"`
	Device   DeviceConfig   `yaml:"device"`
	Images   ImagesConfig   `yaml:"images"`
	Assets   AssetsConfig   `yaml:"assets"`
	Database DatabaseConfig `yaml:"database"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Source is the file the configuration was read from, empty for defaults
	Source string `yaml:"-"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	PublicURL      string `yaml:"public_url"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMS int    `yaml:"write_timeout_ms"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAgeSeconds  int      `yaml:"max_age_seconds"`
}

type PluginsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type PreviewConfig struct {
	MaxRequestsPer5Min int `yaml:"max_requests_per_5_min"`
	FetchTimeoutMS     int `yaml:"fetch_timeout_ms"`
}

type DeviceConfig struct {
	DataFile             string `yaml:"data_file"`
	RefreshRateSeconds   int    `yaml:"refresh_rate_seconds"`
	DefaultDisplayLayout string `yaml:"default_display_layout"`
}

type ImagesConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ConvertBin       string `yaml:"convert_bin"`
	BrowserBin       string `yaml:"browser_bin"`
	DelayMS          int    `yaml:"delay_ms"`
	ConvertTimeoutMS int    `yaml:"convert_timeout_ms"`
	RenderTimeoutMS  int    `yaml:"render_timeout_ms"`
}

type AssetsConfig struct {
	Mode            string `yaml:"mode"`
	CacheDir        string `yaml:"cache_dir"`
	CDN             string `yaml:"cdn"`
	RefreshSchedule string `yaml:"refresh_schedule"`
	ProxyTTLMinutes int    `yaml:"proxy_ttl_minutes"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AdminConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	JWTSecret      string `yaml:"jwt_secret"`
	JWTExpiryHours int    `yaml:"jwt_expiry_hours"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			ReadTimeoutMS:  30000,
			WriteTimeoutMS: 60000,
		},
		CORS: CORSConfig{
			Enabled:        false,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAgeSeconds:  3600,
		},
		Plugins: PluginsConfig{
			Path:  ".",
			Watch: true,
		},
		Preview: PreviewConfig{
			MaxRequestsPer5Min: 400,
			FetchTimeoutMS:     0,
		},
		Device: DeviceConfig{
			RefreshRateSeconds:   900,
			DefaultDisplayLayout: "full",
		},
		Images: ImagesConfig{
			Enabled:          true,
			ConvertBin:       "convert",
			DelayMS:          1000,
			ConvertTimeoutMS: 30000,
			RenderTimeoutMS:  60000,
		},
		Assets: AssetsConfig{
			Mode:            AssetModeCache,
			CacheDir:        "cache",
			CDN:             "https://usetrmnl.com",
			ProxyTTLMinutes: 60,
		},
		Database: DatabaseConfig{
			Path: "trmnlp.db",
		},
		Admin: AdminConfig{
			Enabled:        false,
			Username:       "admin",
			JWTExpiryHours: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads configuration from file and applies environment variable
// overrides. A missing file is not an error: defaults are used.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			cfg.Source = configPath
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate ensures all configuration values are usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Plugins.Path == "" {
		return fmt.Errorf("PLUGINS_PATH is required")
	}

	if c.Preview.MaxRequestsPer5Min <= 0 {
		return fmt.Errorf("MAX_REQUESTS_PER_5_MIN must be positive")
	}
	if c.Preview.FetchTimeoutMS < 0 {
		return fmt.Errorf("preview fetch_timeout_ms must not be negative")
	}

	if c.Assets.Mode != AssetModeCache && c.Assets.Mode != AssetModeProxy {
		return fmt.Errorf("assets mode must be %q or %q, got %q", AssetModeCache, AssetModeProxy, c.Assets.Mode)
	}
	if c.Assets.Mode == AssetModeCache && c.Assets.CacheDir == "" {
		return fmt.Errorf("CACHE_PATH is required when assets are cached")
	}

	if c.Images.Enabled && c.Images.ConvertBin == "" {
		return fmt.Errorf("IMAGE_MAGICK_BIN is required when image generation is enabled")
	}

	if c.Admin.Enabled {
		if c.Database.Path == "" {
			return fmt.Errorf("DATABASE_PATH is required in admin mode")
		}
		if c.Admin.JWTSecret != "" && len(c.Admin.JWTSecret) < 32 {
			return fmt.Errorf("admin jwt_secret must be at least 32 characters")
		}
		if c.Admin.JWTSecret != "" && c.Admin.Password == "" {
			return fmt.Errorf("ADMIN_PASSWORD must be set when admin tokens are enabled")
		}
	}

	if !c.Logging.IsLogLevelValid() {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies the documented environment variables
func applyEnvOverrides(cfg *Config) {
	// Paths
	if v := os.Getenv("PLUGINS_PATH"); v != "" {
		cfg.Plugins.Path = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.Assets.CacheDir = v
	}
	if v := os.Getenv("DEVICE_DATA_FILE"); v != "" {
		cfg.Device.DataFile = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("IMAGE_MAGICK_BIN"); v != "" {
		cfg.Images.ConvertBin = v
	}

	// Feature flags
	if v, ok := envBool("ENABLE_IMAGE_GENERATION"); ok {
		cfg.Images.Enabled = v
	}
	if v, ok := envBool("DEBUG_MODE"); ok && v {
		cfg.Logging.Level = "debug"
	}
	if v, ok := envBool("USE_CACHE"); ok {
		if v {
			cfg.Assets.Mode = AssetModeCache
		} else {
			cfg.Assets.Mode = AssetModeProxy
		}
	}
	if v, ok := envBool("ADMIN_MODE"); ok {
		cfg.Admin.Enabled = v
	}

	// Limits and server
	if v := os.Getenv("MAX_REQUESTS_PER_5_MIN"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Preview.MaxRequestsPer5Min)
	}
	if v := os.Getenv("PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Server.Port)
	}

	// Admin credentials
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.Admin.Password = v
	}
}

func envBool(key string) (bool, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

// ReadTimeout returns the read timeout as a duration
func (s *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// WriteTimeout returns the write timeout as a duration
func (s *ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMS) * time.Millisecond
}

// Addr returns the listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL returns the URL the headless browser uses to reach this server
func (s *ServerConfig) BaseURL() string {
	if s.PublicURL != "" {
		return strings.TrimSuffix(s.PublicURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// FetchTimeout returns the polling fetch timeout, zero for the client default
func (p *PreviewConfig) FetchTimeout() time.Duration {
	return time.Duration(p.FetchTimeoutMS) * time.Millisecond
}

// Delay returns the screenshot delay as a duration
func (i *ImagesConfig) Delay() time.Duration {
	return time.Duration(i.DelayMS) * time.Millisecond
}

// ConvertTimeout returns the converter timeout as a duration
func (i *ImagesConfig) ConvertTimeout() time.Duration {
	return time.Duration(i.ConvertTimeoutMS) * time.Millisecond
}

// RenderTimeout bounds a whole image generation
func (i *ImagesConfig) RenderTimeout() time.Duration {
	return time.Duration(i.RenderTimeoutMS) * time.Millisecond
}

// ProxyTTL returns the asset proxy cache TTL
func (a *AssetsConfig) ProxyTTL() time.Duration {
	return time.Duration(a.ProxyTTLMinutes) * time.Minute
}

// JWTExpiry returns JWT expiry as duration
func (a *AdminConfig) JWTExpiry() time.Duration {
	return time.Duration(a.JWTExpiryHours) * time.Hour
}

// TokensEnabled reports whether admin routes require a bearer token
func (a *AdminConfig) TokensEnabled() bool {
	return a.JWTSecret != ""
}

// IsLogLevelValid checks if the log level is valid
func (l *LoggingConfig) IsLogLevelValid() bool {
	validLevels := []string{"debug", "info", "warn", "error"}
	return slices.Contains(validLevels, strings.ToLower(l.Level))
}
