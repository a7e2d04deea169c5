package assets

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/trmnlp/trmnlp/internal/metrics"
)

type cachedAsset struct {
	contentType string
	body        []byte
}

// Proxy serves asset paths from the CDN through an in-memory TTL cache
type Proxy struct {
	client   *http.Client
	cdn      string
	manifest []Asset
	cache    *gocache.Cache
	logger   *slog.Logger
}

// NewProxy creates a caching CDN proxy
func NewProxy(client *http.Client, cdn string, ttl time.Duration, logger *slog.Logger) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	if cdn == "" {
		cdn = DefaultCDN
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{
		client:   client,
		cdn:      cdn,
		manifest: Manifest,
		cache:    gocache.New(ttl, 2*ttl),
		logger:   logger.With("component", "asset_proxy"),
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path

	if v, ok := p.cache.Get(key); ok {
		metrics.AssetProxyCacheTotal.WithLabelValues("hit").Inc()
		writeAsset(w, v.(*cachedAsset))
		return
	}
	metrics.AssetProxyCacheTotal.WithLabelValues("miss").Inc()

	asset, err := p.fetch(r, key)
	if err != nil {
		p.logger.Warn("Asset proxy fetch failed", "path", key, "error", err)
		http.Error(w, "asset unavailable", http.StatusBadGateway)
		return
	}

	p.cache.Set(key, asset, gocache.DefaultExpiration)
	writeAsset(w, asset)
}

func (p *Proxy) fetch(r *http.Request, path string) (*cachedAsset, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, SourceURL(p.cdn, sourceFor(p.manifest, path)), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cdn returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &cachedAsset{contentType: resp.Header.Get("Content-Type"), body: body}, nil
}

func writeAsset(w http.ResponseWriter, a *cachedAsset) {
	if a.contentType != "" {
		w.Header().Set("Content-Type", a.contentType)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(a.body)
}
