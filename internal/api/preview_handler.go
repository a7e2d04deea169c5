package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trmnlp/trmnlp/internal/imaging"
	"github.com/trmnlp/trmnlp/internal/plugins"
	"github.com/trmnlp/trmnlp/internal/preview"
)

// PreviewHandler renders plugin previews as HTML and device images
type PreviewHandler struct {
	registry      *plugins.Registry
	preview       *preview.Service
	images        *imaging.Generator
	baseURL       string
	renderTimeout time.Duration
	logger        *slog.Logger
}

// NewPreviewHandler creates a preview handler. baseURL is where the headless
// browser reaches this server.
func NewPreviewHandler(registry *plugins.Registry, svc *preview.Service, images *imaging.Generator, baseURL string, renderTimeout time.Duration, logger *slog.Logger) *PreviewHandler {
	return &PreviewHandler{
		registry:      registry,
		preview:       svc,
		images:        images,
		baseURL:       baseURL,
		renderTimeout: renderTimeout,
		logger:        logger.With("component", "preview_handler"),
	}
}

// Preview handles GET /preview/[{plugin}/]{layout}
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := pluginIDParam(w, r, h.registry, "plugin", "Please select a plugin before loading preview")
	if !ok {
		return
	}

	live := r.URL.Query().Get("live") == "true"
	page, err := h.preview.Render(r.Context(), id, chi.URLParam(r, "layout"), live)
	if err != nil {
		h.logger.Warn("Preview failed", "plugin", id, "live", live, "error", err)
		sendPreviewError(w, r, err)
		return
	}
	sendText(w, "text/html; charset=utf-8", page)
}

// Image handles GET /api/image/[{plugin}/]{layout}
func (h *PreviewHandler) Image(w http.ResponseWriter, r *http.Request) {
	if !h.images.Enabled() {
		sendError(w, r, http.StatusNotFound, "IMAGE_GENERATION_DISABLED", "Image generation is disabled", nil)
		return
	}
	id, ok := pluginIDParam(w, r, h.registry, "plugin", "Please select a plugin before generating an image")
	if !ok {
		return
	}

	ctx := r.Context()
	if h.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.renderTimeout)
		defer cancel()
	}

	bmp, err := h.images.Generate(ctx, h.previewURL(id, chi.URLParam(r, "layout"), r.URL.Query().Get("live")))
	if err != nil {
		if errors.Is(err, imaging.ErrDisabled) {
			sendError(w, r, http.StatusNotFound, "IMAGE_GENERATION_DISABLED", "Image generation is disabled", nil)
			return
		}
		sendError(w, r, http.StatusInternalServerError, "IMAGE_GENERATION_FAILED", "Failed to generate image", err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/bmp")
	w.Header().Set("Content-Disposition", `inline; filename="trmnl-display.bmp"`)
	w.WriteHeader(http.StatusOK)
	w.Write(bmp)
}

func (h *PreviewHandler) previewURL(pluginID, layout, live string) string {
	u := h.baseURL + "/preview/"
	if pluginID != plugins.CurrentDirID {
		u += url.PathEscape(pluginID) + "/"
	}
	u += url.PathEscape(layout)
	if live == "true" {
		u += "?live=true"
	}
	return u
}
