package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/trmnlp/trmnlp/internal/metrics"
)

var cssURLPattern = regexp.MustCompile(`url\(['"]?([^'")\s]+)['"]?\)`)

// Downloader fetches the design-system assets into the cache directory
type Downloader struct {
	client   *http.Client
	cdn      string
	cacheDir string
	manifest []Asset
	logger   *slog.Logger
}

// NewDownloader creates a downloader for the default manifest
func NewDownloader(client *http.Client, cdn, cacheDir string, logger *slog.Logger) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if cdn == "" {
		cdn = DefaultCDN
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		client:   client,
		cdn:      cdn,
		cacheDir: cacheDir,
		manifest: Manifest,
		logger:   logger.With("component", "asset_downloader"),
	}
}

// CacheDir returns the directory assets are written to
func (d *Downloader) CacheDir() string {
	return d.cacheDir
}

// DownloadAll downloads every manifest entry, then the images referenced by
// the design-system stylesheet. The first failure aborts.
func (d *Downloader) DownloadAll(ctx context.Context) error {
	for _, asset := range d.manifest {
		dest := filepath.Join(d.cacheDir, filepath.FromSlash(asset.File))
		if err := d.download(ctx, SourceURL(d.cdn, asset.Source), dest); err != nil {
			return err
		}

		if asset.File == StylesheetFile {
			if err := d.downloadStylesheetImages(ctx, dest); err != nil {
				return err
			}
		}
	}

	d.logger.Info("All assets downloaded", "dir", d.cacheDir)
	return nil
}

func (d *Downloader) downloadStylesheetImages(ctx context.Context, cssPath string) error {
	css, err := os.ReadFile(cssPath)
	if err != nil {
		return fmt.Errorf("failed to read stylesheet: %w", err)
	}

	for _, ref := range ExtractCSSURLs(string(css)) {
		source := SourceURL(d.cdn, ref)

		rel := ref
		if isAbsolute(ref) {
			u, err := url.Parse(ref)
			if err != nil {
				return fmt.Errorf("invalid stylesheet url %q: %w", ref, err)
			}
			rel = u.Path
		}

		dest := filepath.Join(d.cacheDir, filepath.FromSlash(cleanRelative(rel)))
		if err := d.download(ctx, source, dest); err != nil {
			return err
		}
	}
	return nil
}

func (d *Downloader) download(ctx context.Context, source, dest string) error {
	d.logger.Debug("Downloading asset", "url", source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fmt.Errorf("invalid asset url %s: %w", source, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		metrics.AssetDownloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to download %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.AssetDownloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to download %s: status %d", source, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.AssetDownloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	metrics.AssetDownloadsTotal.WithLabelValues("ok").Inc()
	d.logger.Debug("Downloaded asset", "url", source, "path", dest, "bytes", len(body))
	return nil
}

// ExtractCSSURLs returns url(...) references worth downloading: data URIs
// and font files are skipped, duplicates removed
func ExtractCSSURLs(css string) []string {
	seen := map[string]bool{}
	var urls []string
	for _, m := range cssURLPattern.FindAllStringSubmatch(css, -1) {
		u := m[1]
		if strings.HasPrefix(u, "data:") || strings.Contains(u, ".ttf") || strings.Contains(u, ".woff") {
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}
