package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trmnlp/trmnlp/internal/plugins"
	"github.com/trmnlp/trmnlp/internal/preview"
)

// PluginHandler serves plugin listings and raw plugin files
type PluginHandler struct {
	registry *plugins.Registry
	preview  *preview.Service
}

// NewPluginHandler creates a plugin handler
func NewPluginHandler(registry *plugins.Registry, svc *preview.Service) *PluginHandler {
	return &PluginHandler{registry: registry, preview: svc}
}

// List handles GET /api/plugins
func (h *PluginHandler) List(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, h.registry.Listing())
}

// Settings handles GET /api/plugin-toml[/{pluginId}]
func (h *PluginHandler) Settings(w http.ResponseWriter, r *http.Request) {
	id, ok := pluginIDParam(w, r, h.registry, "pluginId", "Please select a plugin to view its configuration")
	if !ok {
		return
	}
	dir, err := h.registry.Dir(id)
	if err != nil {
		sendNotFound(w, r, err, "Plugin configuration not found")
		return
	}
	text, err := plugins.ReadSettingsText(dir)
	if err != nil {
		sendNotFound(w, r, err, "Plugin configuration not found")
		return
	}
	sendText(w, "text/plain; charset=utf-8", text)
}

// Layout handles GET /api/layout/[{pluginId}/]{layout}
func (h *PluginHandler) Layout(w http.ResponseWriter, r *http.Request) {
	id, ok := pluginIDParam(w, r, h.registry, "pluginId", "Please select a plugin before loading layout")
	if !ok {
		return
	}
	dir, err := h.registry.Dir(id)
	if err != nil {
		sendNotFound(w, r, err, "Layout template not found")
		return
	}
	view, err := plugins.ReadLayout(dir, chi.URLParam(r, "layout"))
	if err != nil {
		sendNotFound(w, r, err, "Layout template not found")
		return
	}
	sendText(w, "text/plain; charset=utf-8", view)
}

// Resolve handles GET /api/admin/resolve/{pluginId}, returning the polling request
// that a live preview would send
func (h *PluginHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pluginIDParam(w, r, h.registry, "pluginId", "Please select a plugin to resolve")
	if !ok {
		return
	}
	req, err := h.preview.Resolve(id)
	if err != nil {
		sendPreviewError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, req)
}
