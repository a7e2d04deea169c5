package resolver

import (
	"sort"

	"github.com/trmnlp/trmnlp/internal/device"
	"github.com/trmnlp/trmnlp/internal/plugins"
)

// RequestDescriptor is a fully substituted polling request. It is built for a
// single fetch and never cached.
type RequestDescriptor struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body,omitempty"`
	Unresolved []string          `json:"unresolved,omitempty"`
}

// Build resolves the polling request of a plugin
func Build(settings *plugins.Settings, overrides plugins.Overrides, dev *device.Data) *RequestDescriptor {
	chain := NewChain(overrides, settings.CustomFields, dev)
	missing := map[string]struct{}{}

	expand := func(template string) string {
		e := Expand(template, chain)
		for _, name := range e.Unresolved {
			missing[name] = struct{}{}
		}
		return e.Text
	}

	url := expand(settings.PollingURLTemplate())
	if extra, ok := overrides.QueryParams(); ok {
		url += extra
	}

	headers := ParseHeaders(settings.PollingHeaders)
	for k, v := range headers {
		headers[k] = expand(v)
	}
	for k, v := range overrides.ExtraHeaders() {
		headers[k] = v
	}

	req := &RequestDescriptor{
		Method:  settings.Method(),
		URL:     url,
		Headers: headers,
	}
	if settings.PollingBody != "" {
		req.Body = expand(settings.PollingBody)
	}

	for name := range missing {
		req.Unresolved = append(req.Unresolved, name)
	}
	sort.Strings(req.Unresolved)

	return req
}
