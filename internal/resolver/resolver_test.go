package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trmnlp/trmnlp/internal/device"
	"github.com/trmnlp/trmnlp/internal/plugins"
)

func testDevice(t *testing.T) *device.Data {
	t.Helper()
	d, err := device.Parse([]byte(`{
		"mac": "AA:BB",
		"battery": 87,
		"API_KEY": "from-device",
		"trmnl": {"plugin_settings": {"name": "Kitchen"}}
	}`))
	require.NoError(t, err)
	return d
}

func TestChain_Precedence(t *testing.T) {
	overrides := plugins.NewOverrides(map[string]string{"api_key": "from-env"})
	fields := map[string]any{"API_KEY": "from-field", "city": "Berlin", "count": float64(3)}
	chain := NewChain(overrides, fields, testDevice(t))

	tests := []struct {
		name   string
		want   string
		source SourceKind
	}{
		{"API_KEY", "from-env", SourceOverride},
		{"api_key", "from-env", SourceOverride},
		{"city", "Berlin", SourceCustomField},
		{"count", "3", SourceCustomField},
		{"mac", "AA:BB", SourceDevice},
		{"battery", "87", SourceDevice},
		{"trmnl.plugin_settings.name", "Kitchen", SourceDevice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chain.Lookup(tt.name)
			require.True(t, r.Resolved)
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.source, r.Source)
		})
	}

	r := chain.Lookup("nowhere")
	assert.False(t, r.Resolved)
	assert.Equal(t, SourceNone, r.Source)
}

func TestExpand(t *testing.T) {
	chain := NewChain(plugins.NewOverrides(map[string]string{"API_KEY": "abc123", "city": "Berlin"}), nil, nil)

	tests := []struct {
		name       string
		template   string
		want       string
		unresolved []string
	}{
		{"no tokens", "https://x/static?q=1", "https://x/static?q=1", nil},
		{"single token", "https://x/{API_KEY}", "https://x/abc123", nil},
		{"lower-case key resolves upper", "https://x/{api_key}", "https://x/abc123", nil},
		{"adjacent tokens", "{city}{API_KEY}", "Berlinabc123", nil},
		{"unresolved kept verbatim", "https://x/{MISSING}/{API_KEY}", "https://x/{MISSING}/abc123", []string{"MISSING"}},
		{"double brace untouched", "{{ API_KEY }} and {{API_KEY}}", "{{ API_KEY }} and {{API_KEY}}", nil},
		{"json body untouched", `{"key": "{API_KEY}"}`, `{"key": "abc123"}`, nil},
		{"spaces are not tokens", "{ API_KEY }", "{ API_KEY }", nil},
		{"unterminated", "https://x/{API_KEY", "https://x/{API_KEY", nil},
		{"empty braces", "{}", "{}", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Expand(tt.template, chain)
			assert.Equal(t, tt.want, e.Text)
			assert.Equal(t, tt.unresolved, e.Unresolved)
		})
	}
}

func TestExpand_Idempotent(t *testing.T) {
	chain := NewChain(plugins.NewOverrides(map[string]string{"API_KEY": "abc123"}), map[string]any{"zip": "10115"}, nil)

	for _, template := range []string{
		"https://x/{API_KEY}?zip={zip}",
		"https://x/{API_KEY}/{UNKNOWN}",
		"plain text",
		"{{ liquid }}",
	} {
		once := Substitute(template, chain)
		twice := Substitute(once, chain)
		assert.Equal(t, once, twice, template)
	}
}

func TestExpand_SinglePass(t *testing.T) {
	chain := NewChain(plugins.NewOverrides(map[string]string{"A": "{B}", "B": "nested"}), nil, nil)
	assert.Equal(t, "{B}", Substitute("{A}", chain))
}

func TestScan(t *testing.T) {
	var names []string
	for _, tok := range scan("{a}/{b.c}?x={d-e}&{{ f }}") {
		names = append(names, tok.name)
	}
	assert.Equal(t, []string{"a", "b.c", "d-e"}, names)
	assert.Empty(t, scan("nothing here"))
}

func TestParseHeaders(t *testing.T) {
	t.Run("mapping", func(t *testing.T) {
		got := ParseHeaders(map[string]any{"Authorization": "Bearer {TOKEN}", "X-Num": int64(5), "X-Nil": nil})
		assert.Equal(t, map[string]string{"Authorization": "Bearer {TOKEN}", "X-Num": "5"}, got)
	})

	t.Run("multi-line string", func(t *testing.T) {
		got := ParseHeaders("Authorization: Bearer a=b\nAccept=application/json\n\n  X-Trim :  spaced  \nbroken line\n: novalue\n")
		assert.Equal(t, map[string]string{
			"Authorization": "Bearer a=b",
			"Accept":        "application/json",
			"X-Trim":        "spaced",
		}, got)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, ParseHeaders(nil))
	})
}

func TestBuild(t *testing.T) {
	settings := &plugins.Settings{
		URL:            "https://x/{API_KEY}",
		PollingVerb:    "post",
		PollingBody:    `{"city": "{city}", "device": "{mac}"}`,
		PollingHeaders: "Authorization: {TOKEN}\nX-Static: 1\nX-Collide: from-settings",
		CustomFields:   map[string]any{"city": "Berlin"},
	}
	overrides := plugins.NewOverrides(map[string]string{
		"API_KEY":                        "abc123",
		"token":                          "Bearer t0k",
		"HEADERS":                        `{"X-Collide": "from-override", "X-Extra": "yes"}`,
		"ADDITIONAL_QUERY_STRING_PARAMS": "?units=metric",
	})

	req := Build(settings, overrides, testDevice(t))

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://x/abc123?units=metric", req.URL)
	assert.Equal(t, `{"city": "Berlin", "device": "AA:BB"}`, req.Body)
	assert.Equal(t, map[string]string{
		"Authorization": "Bearer t0k",
		"X-Static":      "1",
		"X-Collide":     "from-override",
		"X-Extra":       "yes",
	}, req.Headers)
	assert.Empty(t, req.Unresolved)
}

func TestBuild_ScenarioApiKey(t *testing.T) {
	settings := &plugins.Settings{URL: "https://x/{API_KEY}"}
	overrides, err := plugins.ParseOverrides(strings.NewReader("API_KEY=abc123\n"), nil)
	require.NoError(t, err)

	req := Build(settings, overrides, nil)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "https://x/abc123", req.URL)
	assert.Empty(t, req.Headers)
	assert.Empty(t, req.Body)
}

func TestBuild_EmptyOverrideFallsThrough(t *testing.T) {
	settings := &plugins.Settings{
		URL:          "https://x/{API_KEY}",
		CustomFields: map[string]any{"API_KEY": "from-field"},
	}
	overrides, err := plugins.ParseOverrides(strings.NewReader("API_KEY=\n"), nil)
	require.NoError(t, err)

	req := Build(settings, overrides, nil)
	assert.Equal(t, "https://x/from-field", req.URL)
	assert.Empty(t, req.Unresolved)

	req = Build(&plugins.Settings{URL: "https://x/{API_KEY}"}, overrides, nil)
	assert.Equal(t, "https://x/{API_KEY}", req.URL)
	assert.Equal(t, []string{"API_KEY"}, req.Unresolved)
}

func TestBuild_ReportsUnresolved(t *testing.T) {
	settings := &plugins.Settings{
		PollingURL:     "https://x/{B}/{A}",
		PollingHeaders: map[string]any{"Auth": "{A}"},
	}

	req := Build(settings, plugins.Overrides{}, nil)
	assert.Equal(t, "https://x/{B}/{A}", req.URL)
	assert.Equal(t, "{A}", req.Headers["Auth"])
	assert.Equal(t, []string{"A", "B"}, req.Unresolved)
}
