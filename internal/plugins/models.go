package plugins

import (
	"errors"
	"strings"
)

// CurrentDirID is the plugin id used when the plugins root is itself a plugin
const CurrentDirID = "."

// AllPluginsID is the pseudo plugin listed first when more than one plugin exists
const AllPluginsID = "all"

var (
	// ErrSettingsNotFound is returned when a settings file is absent, unparsable or invalid
	ErrSettingsNotFound = errors.New("plugin settings not found")

	// ErrInvalidPluginID is returned for ids that would escape the plugins root
	ErrInvalidPluginID = errors.New("invalid plugin id")

	// ErrSampleNotFound is returned when sample.json is absent or not valid JSON
	ErrSampleNotFound = errors.New("plugin sample data not found")

	// ErrLayoutNotFound is returned when a views/<layout>.liquid file is absent
	ErrLayoutNotFound = errors.New("plugin layout not found")
)

// Strategy is the declared data-sourcing mode of a plugin
type Strategy string

const (
	StrategyStatic  Strategy = "static"
	StrategyWebhook Strategy = "webhook"
	StrategyPolling Strategy = "polling"
)

// Plugin is a listing entry for a plugin directory
type Plugin struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PublicURL string `json:"public_url,omitempty"`
	Dir       string `json:"-"`
}

// Settings is the typed view of a plugin settings file.
// Raw holds every key of the file, used as trmnl.plugin_settings in templates.
type Settings struct {
	Name                string         `toml:"name" yaml:"name"`
	Strategy            Strategy       `toml:"strategy" yaml:"strategy" validate:"omitempty,oneof=static webhook polling"`
	URL                 string         `toml:"url" yaml:"url"`
	PollingURL          string         `toml:"polling_url" yaml:"polling_url"`
	PollingVerb         string         `toml:"polling_verb" yaml:"polling_verb" validate:"omitempty,oneof=GET POST"`
	PollingHeaders      any            `toml:"polling_headers" yaml:"polling_headers"`
	PollingBody         string         `toml:"polling_body" yaml:"polling_body"`
	RefreshInterval     int            `toml:"refresh_interval" yaml:"refresh_interval" validate:"gte=0"`
	CustomFields        map[string]any `toml:"custom_fields_values" yaml:"custom_fields_values"`
	RequiresAuthHeaders bool           `toml:"requires_auth_headers" yaml:"requires_auth_headers"`

	Raw  map[string]any `toml:"-" yaml:"-"`
	File string         `toml:"-" yaml:"-"`
}

// PollingURLTemplate returns polling_url, falling back to url
func (s *Settings) PollingURLTemplate() string {
	if s.PollingURL != "" {
		return s.PollingURL
	}
	return s.URL
}

// EffectiveStrategy returns the declared strategy, or infers one from the polling URL
func (s *Settings) EffectiveStrategy() Strategy {
	if s.Strategy != "" {
		return s.Strategy
	}
	if s.PollingURLTemplate() != "" {
		return StrategyPolling
	}
	return StrategyStatic
}

// Method returns the upper-cased polling verb, GET by default
func (s *Settings) Method() string {
	if s.PollingVerb == "" {
		return "GET"
	}
	return strings.ToUpper(s.PollingVerb)
}

// PluginSettings returns the template context view: every raw key plus
// a guaranteed custom_fields_values mapping
func (s *Settings) PluginSettings() map[string]any {
	out := make(map[string]any, len(s.Raw)+1)
	for k, v := range s.Raw {
		out[k] = v
	}
	fields := make(map[string]any, len(s.CustomFields))
	for k, v := range s.CustomFields {
		fields[k] = v
	}
	out["custom_fields_values"] = fields
	return out
}
