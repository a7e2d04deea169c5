package plugins

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SettingsFiles lists the settings file names in lookup order
var SettingsFiles = []string{"config.toml", "settings.yml", "settings.yaml"}

const (
	SampleFile   = "sample.json"
	OverrideFile = ".env"
	ViewsDir     = "views"
)

var validate = validator.New()

// FindSettingsFile returns the first settings file present in dir
func FindSettingsFile(dir string) (string, bool) {
	for _, name := range SettingsFiles {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// IsPluginDir reports whether dir contains a settings file
func IsPluginDir(dir string) bool {
	_, ok := FindSettingsFile(dir)
	return ok
}

// LoadSettings reads and validates the settings file of the plugin in dir.
// Every failure wraps ErrSettingsNotFound.
func LoadSettings(dir string) (*Settings, error) {
	path, ok := FindSettingsFile(dir)
	if !ok {
		return nil, fmt.Errorf("%w: no %s in %s", ErrSettingsNotFound, strings.Join(SettingsFiles, "/"), dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrSettingsNotFound, path, err)
	}

	settings, err := ParseSettings(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSettingsNotFound, path, err)
	}
	settings.File = path

	return settings, nil
}

// ParseSettings decodes settings content; the format is chosen by file extension
func ParseSettings(name string, data []byte) (*Settings, error) {
	settings := &Settings{}
	raw := map[string]any{}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if _, err := toml.Decode(string(data), settings); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings format: %s", name)
	}

	settings.PollingVerb = strings.ToUpper(strings.TrimSpace(settings.PollingVerb))
	if err := validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	if raw == nil {
		raw = map[string]any{}
	}
	if settings.CustomFields == nil {
		settings.CustomFields = map[string]any{}
	}
	raw["custom_fields_values"] = settings.CustomFields
	settings.Raw = raw

	return settings, nil
}

// ReadSettingsText returns the settings file content verbatim
func ReadSettingsText(dir string) (string, error) {
	path, ok := FindSettingsFile(dir)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSettingsNotFound, dir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSettingsNotFound, err)
	}
	return string(data), nil
}

// LoadSample reads sample.json from dir
func LoadSample(dir string) (any, error) {
	data, err := os.ReadFile(filepath.Join(dir, SampleFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSampleNotFound, err)
	}

	var sample any
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrSampleNotFound, SampleFile, err)
	}
	return sample, nil
}

// NormalizeLayout maps request layout names to view file names
func NormalizeLayout(layout string) string {
	layout = strings.TrimSuffix(layout, ".html")
	layout = strings.TrimSuffix(layout, ".liquid")
	return strings.ReplaceAll(layout, "-", "_")
}

// ReadLayout returns the raw Liquid view for layout
func ReadLayout(dir, layout string) (string, error) {
	name := NormalizeLayout(layout)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrLayoutNotFound, layout)
	}

	data, err := os.ReadFile(filepath.Join(dir, ViewsDir, name+".liquid"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLayoutNotFound, err)
	}
	return string(data), nil
}
