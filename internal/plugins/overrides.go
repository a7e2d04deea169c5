package plugins

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HeadersKey holds a JSON object of extra headers merged verbatim
	HeadersKey = "HEADERS"
	// QueryParamsKey holds a raw string appended to the polling URL
	QueryParamsKey = "ADDITIONAL_QUERY_STRING_PARAMS"
)

// Overrides are the key/value pairs of a plugin's .env file. Every key is
// stored both verbatim and upper-cased.
type Overrides struct {
	Present bool
	values  map[string]string
}

// NewOverrides builds overrides from a plain map, applying the same key doubling
// as the file parser
func NewOverrides(values map[string]string) Overrides {
	o := Overrides{Present: true, values: make(map[string]string, len(values)*2)}
	for k, v := range values {
		if v == "" {
			continue
		}
		o.set(k, v)
	}
	return o
}

// OverridesPath returns the .env path for a plugin directory
func OverridesPath(dir string) string {
	return filepath.Join(dir, OverrideFile)
}

// HasOverrides reports whether the plugin directory has an override file
func HasOverrides(dir string) bool {
	info, err := os.Stat(OverridesPath(dir))
	return err == nil && !info.IsDir()
}

// ReadOverrides reads dir/.env. A missing file yields empty overrides with
// Present=false.
func ReadOverrides(dir string, logger *slog.Logger) (Overrides, error) {
	f, err := os.Open(OverridesPath(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Overrides{values: map[string]string{}}, nil
		}
		return Overrides{}, fmt.Errorf("failed to open override file: %w", err)
	}
	defer f.Close()

	return ParseOverrides(f, logger)
}

// ParseOverrides parses KEY=VALUE lines. Lines are split on the first '='
// only; blank and '#' lines are skipped; keys and values are trimmed.
// A key with an empty value is not stored.
// An invalid JSON HEADERS value is logged and dropped.
func ParseOverrides(r io.Reader, logger *slog.Logger) (Overrides, error) {
	if logger == nil {
		logger = slog.Default()
	}

	o := Overrides{Present: true, values: map[string]string{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		o.set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return Overrides{}, fmt.Errorf("failed to read override file: %w", err)
	}

	if raw, ok := o.Lookup(HeadersKey); ok {
		var headers map[string]any
		if err := json.Unmarshal([]byte(raw), &headers); err != nil || headers == nil {
			logger.Warn("Dropping malformed override value",
				"key", HeadersKey,
				"error", err,
			)
			o.drop(HeadersKey)
		}
	}

	return o, nil
}

func (o *Overrides) set(key, value string) {
	o.values[key] = value
	o.values[strings.ToUpper(key)] = value
}

func (o *Overrides) drop(key string) {
	for k := range o.values {
		if strings.EqualFold(k, key) {
			delete(o.values, k)
		}
	}
}

// Lookup returns the value for key, trying the exact key then its upper-cased form
func (o Overrides) Lookup(key string) (string, bool) {
	if v, ok := o.values[key]; ok {
		return v, true
	}
	v, ok := o.values[strings.ToUpper(key)]
	return v, ok
}

// ExtraHeaders decodes the HEADERS override. Non-string values are JSON encoded.
func (o Overrides) ExtraHeaders() map[string]string {
	raw, ok := o.Lookup(HeadersKey)
	if !ok {
		return nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil
	}

	headers := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			headers[k] = val
		default:
			b, _ := json.Marshal(val)
			headers[k] = string(b)
		}
	}
	return headers
}

// QueryParams returns the raw additional query string, if any
func (o Overrides) QueryParams() (string, bool) {
	v, ok := o.Lookup(QueryParamsKey)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
