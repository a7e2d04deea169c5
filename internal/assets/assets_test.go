package assets

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testCSS = `
.a { background: url('/images/dither.png'); }
.b { background-image: url("/images/grid.svg"); }
.c { src: url(/fonts/Nico.ttf); }
.d { src: url(/fonts/Inter.woff2); }
.e { background: url(data:image/png;base64,AAAA); }
.f { background: url(/images/dither.png); }
`

func cdnServer(t *testing.T, missing string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == missing {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path == "/css/latest/plugins.css" {
			w.Header().Set("Content-Type", "text/css")
			io.WriteString(w, testCSS)
			return
		}
		io.WriteString(w, "content of "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestExtractCSSURLs(t *testing.T) {
	assert.Equal(t, []string{"/images/dither.png", "/images/grid.svg"}, ExtractCSSURLs(testCSS))
	assert.Empty(t, ExtractCSSURLs("body { color: black; }"))
}

func TestSourceURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example/css/a.css", SourceURL("https://cdn.example/", "/css/a.css"))
	assert.Equal(t, "https://fonts.example/x", SourceURL("https://cdn.example", "https://fonts.example/x"))
}

func TestDownloader_DownloadAll(t *testing.T) {
	srv, _ := cdnServer(t, "")
	dir := t.TempDir()

	d := NewDownloader(srv.Client(), srv.URL, dir, testLogger())
	d.manifest = []Asset{
		{File: "css/latest/plugins.css", Source: "/css/latest/plugins.css"},
		{File: "js/latest/plugins.js", Source: "/js/latest/plugins.js"},
		{File: "fonts/inter.css", Source: srv.URL + "/google/inter.css"},
	}

	require.NoError(t, d.DownloadAll(context.Background()))

	for file, want := range map[string]string{
		"js/latest/plugins.js": "content of /js/latest/plugins.js",
		"fonts/inter.css":      "content of /google/inter.css",
		"images/dither.png":    "content of /images/dither.png",
		"images/grid.svg":      "content of /images/grid.svg",
	} {
		got, err := os.ReadFile(filepath.Join(dir, file))
		require.NoError(t, err, file)
		assert.Equal(t, want, string(got))
	}

	_, err := os.Stat(filepath.Join(dir, "fonts", "Nico.ttf"))
	assert.True(t, os.IsNotExist(err), "fonts referenced from CSS are skipped")
}

func TestDownloader_FailsOnMissingAsset(t *testing.T) {
	srv, _ := cdnServer(t, "/js/latest/plugins.js")

	d := NewDownloader(srv.Client(), srv.URL, t.TempDir(), testLogger())
	d.manifest = Manifest[:2]

	err := d.DownloadAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestProxy_CachesResponses(t *testing.T) {
	srv, hits := cdnServer(t, "/images/missing.png")
	p := NewProxy(srv.Client(), srv.URL, time.Minute, testLogger())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/css/latest/plugins.css", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/css", rec.Header().Get("Content-Type"))
		assert.Equal(t, testCSS, rec.Body.String())
	}
	assert.Equal(t, int32(1), hits.Load(), "repeat requests are served from cache")

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/missing.png", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestProxy_ManifestSources(t *testing.T) {
	srv, _ := cdnServer(t, "/fonts/inter.css")
	p := NewProxy(srv.Client(), srv.URL, time.Minute, testLogger())
	p.manifest = []Asset{{File: "fonts/inter.css", Source: srv.URL + "/google/inter.css"}}

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fonts/inter.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content of /google/inter.css", rec.Body.String())

	assert.Equal(t, DefaultCDN+"/css/latest/plugins.css", SourceURL(DefaultCDN, sourceFor(Manifest, "/css/latest/plugins.css")))
	assert.Equal(t, "/images/grid.svg", sourceFor(Manifest, "/images/grid.svg"))
	assert.True(t, strings.HasPrefix(sourceFor(Manifest, "/fonts/inter.css"), "https://fonts.googleapis.com/"))
}

func TestScheduler(t *testing.T) {
	srv, hits := cdnServer(t, "")
	d := NewDownloader(srv.Client(), srv.URL, t.TempDir(), testLogger())
	d.manifest = []Asset{{File: "js/latest/plugins.js", Source: "/js/latest/plugins.js"}}

	_, err := NewScheduler("not a schedule", d, testLogger())
	assert.Error(t, err)

	s, err := NewScheduler("@daily", d, testLogger())
	require.NoError(t, err)

	s.Start()
	s.refresh()
	s.Stop()

	assert.Equal(t, int32(1), hits.Load())
}
