package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DumpExampleConfig writes an example configuration to the provided writer
func DumpExampleConfig(w io.Writer) error {
	example := Default()
	example.Plugins.Path = "./plugins"
	example.Device.DataFile = "./device.json"
	example.Assets.RefreshSchedule = "@daily"
	example.Admin.Password = "changeme"
	example.Admin.JWTSecret = "your-secret-key-minimum-32-chars-required"

	// Create a YAML node for custom formatting with comments
	var node yaml.Node
	if err := node.Encode(example); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	header := `# =============================================================================
# trmnlp Example Configuration
# =============================================================================
# Copy this file to config.yaml and modify it according to your needs.
# Every key is optional; missing keys keep their defaults.
#
# Environment variable overrides:
#   PLUGINS_PATH, CACHE_PATH, DEVICE_DATA_FILE, DATABASE_PATH, IMAGE_MAGICK_BIN,
#   ENABLE_IMAGE_GENERATION, DEBUG_MODE, USE_CACHE, ADMIN_MODE,
#   MAX_REQUESTS_PER_5_MIN, PORT, ADMIN_JWT_SECRET, ADMIN_PASSWORD
# =============================================================================

`
	if _, err := fmt.Fprint(w, header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}

	footer := `
# =============================================================================
# Notes:
# =============================================================================
#
# 1. Plugins:
#    - plugins.path is either a single plugin directory (holding config.toml,
#      settings.yml or settings.yaml) or a directory of plugin directories
#    - A plugin's .env file supplies {TOKEN} values for its polling URL
#
# 2. Images:
#    - Image generation needs Chromium and ImageMagick on the host
#
# 3. Admin:
#    - Admin routes are only served with ADMIN_MODE=true
#    - Set admin.jwt_secret to require bearer tokens from /api/admin/login
#    - admin.password may be a bcrypt hash
# =============================================================================
`
	if _, err := fmt.Fprint(w, footer); err != nil {
		return fmt.Errorf("failed to write footer: %w", err)
	}

	return nil
}
