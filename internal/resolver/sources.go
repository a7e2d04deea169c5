package resolver

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/trmnlp/trmnlp/internal/device"
	"github.com/trmnlp/trmnlp/internal/plugins"
)

// SourceKind tags where a token value came from
type SourceKind string

const (
	SourceNone        SourceKind = ""
	SourceOverride    SourceKind = "override"
	SourceCustomField SourceKind = "custom_field"
	SourceDevice      SourceKind = "device"
)

// Resolution is the outcome of looking up one token name
type Resolution struct {
	Value    string     `json:"value,omitempty"`
	Source   SourceKind `json:"source,omitempty"`
	Resolved bool       `json:"resolved"`
}

func unresolved() Resolution {
	return Resolution{}
}

// Source looks up token names
type Source interface {
	Lookup(name string) Resolution
}

// OverrideSource resolves from the plugin .env file: exact key, then upper-cased
type OverrideSource struct {
	Overrides plugins.Overrides
}

func (s OverrideSource) Lookup(name string) Resolution {
	v, ok := s.Overrides.Lookup(name)
	if !ok {
		return unresolved()
	}
	return Resolution{Value: v, Source: SourceOverride, Resolved: true}
}

// FieldSource resolves from custom_fields_values
type FieldSource map[string]any

func (s FieldSource) Lookup(name string) Resolution {
	v, ok := s[name]
	if !ok || v == nil {
		return unresolved()
	}
	return Resolution{Value: stringify(v), Source: SourceCustomField, Resolved: true}
}

// DeviceSource resolves dotted paths against the device document
type DeviceSource struct {
	Data *device.Data
}

func (s DeviceSource) Lookup(name string) Resolution {
	res := s.Data.Get(name)
	if !res.Exists() || res.Type == gjson.Null {
		return unresolved()
	}

	value := res.Raw
	if res.Type == gjson.String {
		value = res.Str
	}
	return Resolution{Value: value, Source: SourceDevice, Resolved: true}
}

// Chain tries each source in order; the first resolved lookup wins
type Chain []Source

func (c Chain) Lookup(name string) Resolution {
	for _, src := range c {
		if r := src.Lookup(name); r.Resolved {
			return r
		}
	}
	return unresolved()
}

// NewChain composes the fixed precedence: overrides, custom fields, device data
func NewChain(overrides plugins.Overrides, fields map[string]any, dev *device.Data) Chain {
	return Chain{
		OverrideSource{Overrides: overrides},
		FieldSource(fields),
		DeviceSource{Data: dev},
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
