package assets

import (
	"path"
	"strings"
)

// DefaultCDN hosts the TRMNL design-system assets
const DefaultCDN = "https://usetrmnl.com"

// Asset maps a cache-relative file to its source URL. Relative sources are
// resolved against the CDN base.
type Asset struct {
	File   string
	Source string
}

// Manifest lists the assets downloaded at startup
var Manifest = []Asset{
	{File: "css/latest/plugins.css", Source: "/css/latest/plugins.css"},
	{File: "js/latest/plugins.js", Source: "/js/latest/plugins.js"},
	{File: "fonts/BlockKie.ttf", Source: "/fonts/BlockKie.ttf"},
	{File: "fonts/NicoBold-Regular.ttf", Source: "/fonts/NicoBold-Regular.ttf"},
	{File: "fonts/NicoClean-Regular.ttf", Source: "/fonts/NicoClean-Regular.ttf"},
	{File: "fonts/NicoPups-Regular.ttf", Source: "/fonts/NicoPups-Regular.ttf"},
	{File: "fonts/inter.css", Source: "https://fonts.googleapis.com/css2?family=Inter:wght@100..900&display=swap"},
}

// StylesheetFile is the manifest entry scanned for image references
const StylesheetFile = "css/latest/plugins.css"

// Prefixes are the URL prefixes served from the cache or proxy
var Prefixes = []string{"/css", "/js", "/fonts", "/images"}

func isAbsolute(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// SourceURL resolves a manifest source against the CDN base
func SourceURL(cdn, source string) string {
	if isAbsolute(source) {
		return source
	}
	return strings.TrimSuffix(cdn, "/") + "/" + strings.TrimPrefix(source, "/")
}

// sourceFor returns the manifest source for a request path, or the path
// itself when no manifest entry is served there
func sourceFor(manifest []Asset, urlPath string) string {
	rel := cleanRelative(urlPath)
	for _, a := range manifest {
		if a.File == rel {
			return a.Source
		}
	}
	return urlPath
}

// cleanRelative turns a URL path into a safe cache-relative file path
func cleanRelative(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}
