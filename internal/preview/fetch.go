package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/trmnlp/trmnlp/internal/metrics"
	"github.com/trmnlp/trmnlp/internal/resolver"
)

// maxBodyBytes caps upstream response bodies
const maxBodyBytes = 10 << 20

// Fetcher performs polling requests
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewFetcher creates a fetcher. A zero timeout leaves the client default.
func NewFetcher(client *http.Client, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:  client,
		timeout: timeout,
		logger:  logger.With("component", "fetcher"),
	}
}

// Fetch executes req and returns the normalized JSON body
func (f *Fetcher) Fetch(ctx context.Context, req *resolver.RequestDescriptor) (map[string]any, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, upstreamFailed("invalid polling request", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	metrics.UpstreamFetchDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		f.logger.Error("Error fetching live data", "url", req.URL, "error", err)
		return nil, upstreamFailed("failed to fetch live data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Error("Upstream returned error status", "url", req.URL, "status", resp.StatusCode)
		return nil, upstreamFailed(fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode), nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, upstreamFailed("failed to read upstream response", err)
	}

	data, err := Normalize(raw)
	if err != nil {
		f.logger.Error("Upstream returned invalid JSON", "url", req.URL, "error", err)
		return nil, upstreamFailed("upstream returned invalid JSON", err)
	}

	f.logger.Debug("Fetched live data", "url", req.URL, "status", resp.StatusCode, "bytes", len(raw))
	return data, nil
}

// Normalize decodes a JSON document into template data. Object roots pass
// through; any other root is wrapped as {"data": <root>}.
func Normalize(raw []byte) (map[string]any, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}

	if gjson.ParseBytes(raw).IsObject() {
		out := map[string]any{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	return map[string]any{"data": root}, nil
}
