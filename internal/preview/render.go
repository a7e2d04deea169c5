package preview

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/osteele/liquid"
)

// PageAssets are the design-system paths referenced by the page shell
type PageAssets struct {
	FontsPath string
	CSSPath   string
	JSPath    string
}

// DefaultPageAssets points at the locally served asset routes
var DefaultPageAssets = PageAssets{
	FontsPath: "/fonts",
	CSSPath:   "/css/latest/plugins.css",
	JSPath:    "/js/latest/plugins.js",
}

var fontFaces = []string{"NicoClean-Regular", "NicoBold-Regular", "NicoPups-Regular", "BlockKie"}

var pageShell = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
{{- range .Fonts }}
@font-face {
  font-family: '{{ .Family }}';
  src: url('{{ $.Assets.FontsPath }}/{{ .File }}.ttf') format('truetype');
  font-weight: normal;
  font-style: normal;
  font-display: swap;
}
{{- end }}
@import url('{{ .Assets.FontsPath }}/inter.css');
</style>
<link rel="stylesheet" href="{{ .Assets.CSSPath }}">
</head>
<body class="trmnl view-only" style="padding:0;margin:0;background:white;">
{{ .Content }}
<script src="{{ .Assets.JSPath }}"></script>
<script>
window.addEventListener('load', function() {
  if (typeof terminalize === 'function') {
    terminalize();
  }
});
</script>
</body>
</html>
`))

type fontFace struct {
	Family string
	File   string
}

// Renderer renders Liquid views and wraps them in the device page shell
type Renderer struct {
	engine *liquid.Engine
	assets PageAssets
	fonts  []fontFace
}

// NewRenderer creates a renderer for the given asset paths
func NewRenderer(assets PageAssets) *Renderer {
	fonts := make([]fontFace, 0, len(fontFaces))
	for _, f := range fontFaces {
		fonts = append(fonts, fontFace{Family: strings.TrimSuffix(f, "-Regular"), File: f})
	}

	return &Renderer{
		engine: liquid.NewEngine(),
		assets: assets,
		fonts:  fonts,
	}
}

// RenderView renders a Liquid view source against data
func (r *Renderer) RenderView(source string, data map[string]any) (string, error) {
	out, err := r.engine.ParseAndRenderString(source, liquid.Bindings(data))
	if err != nil {
		return "", fmt.Errorf("failed to render view: %w", err)
	}
	return out, nil
}

// Page wraps rendered view content in the full HTML document
func (r *Renderer) Page(content string) (string, error) {
	var buf bytes.Buffer
	err := pageShell.Execute(&buf, struct {
		Assets  PageAssets
		Fonts   []fontFace
		Content string
	}{r.assets, r.fonts, content})
	if err != nil {
		return "", fmt.Errorf("failed to build page: %w", err)
	}
	return buf.String(), nil
}
