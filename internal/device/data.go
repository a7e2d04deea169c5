package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// ErrInvalidDeviceData is returned when the device file is not a JSON object
var ErrInvalidDeviceData = errors.New("device data must be a JSON object")

// Data is the process-wide device document. The raw bytes are kept so every
// caller decodes its own copy.
type Data struct {
	path string
	raw  []byte
}

// Load reads device data from path. An empty path yields empty data.
func Load(path string) (*Data, error) {
	if path == "" {
		return &Data{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device data: %w", err)
	}

	d, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.path = path
	return d, nil
}

// Parse validates raw as a JSON object
func Parse(raw []byte) (*Data, error) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, ErrInvalidDeviceData
	}
	return &Data{raw: append([]byte(nil), raw...)}, nil
}

// Path returns the file the data was loaded from
func (d *Data) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// Empty reports whether no device data is configured
func (d *Data) Empty() bool {
	return d == nil || len(d.raw) == 0
}

// Get returns the value at a dotted path such as trmnl.plugin_settings.name
func (d *Data) Get(path string) gjson.Result {
	if d.Empty() || path == "" {
		return gjson.Result{}
	}
	return gjson.GetBytes(d.raw, path)
}

// Map decodes a fresh copy of the document
func (d *Data) Map() (map[string]any, error) {
	out := map[string]any{}
	if d.Empty() {
		return out, nil
	}
	if err := json.Unmarshal(d.raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode device data: %w", err)
	}
	return out, nil
}
