package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trmnlp/trmnlp/internal/middleware"
	"github.com/trmnlp/trmnlp/internal/plugins"
	"github.com/trmnlp/trmnlp/internal/preview"
)

// sendJSON sends a JSON response
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// sendText sends a plain or HTML body
func sendText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// sendError sends a standardized error response
func sendError(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	middleware.SendError(w, r, status, code, message, details)
}

// decodeJSON decodes request body with error handling
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var input T
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, r, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", err.Error())
		return input, false
	}
	return input, true
}

// pluginIDParam returns the plugin id from the URL, falling back to "." in
// single-plugin mode. It answers 400 when no plugin can be determined.
func pluginIDParam(w http.ResponseWriter, r *http.Request, registry *plugins.Registry, param, hint string) (string, bool) {
	id := chi.URLParam(r, param)
	if id == "" {
		id = registry.DefaultID()
	}
	if id == "" {
		sendError(w, r, http.StatusBadRequest, "PLUGIN_ID_REQUIRED", "Plugin ID required", hint)
		return "", false
	}
	return id, true
}

// sendPreviewError maps a preview failure onto the error envelope
func sendPreviewError(w http.ResponseWriter, r *http.Request, err error) {
	pe, ok := preview.AsError(err)
	if !ok {
		sendError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
		return
	}

	var details map[string]any
	if pe.PluginName != "" {
		details = map[string]any{"pluginName": pe.PluginName}
	}
	if pe.Kind == preview.KindRateLimited {
		secs := pe.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		if details == nil {
			details = map[string]any{}
		}
		details["retryAfter"] = secs
	}

	message := pe.Message
	if pe.Kind == preview.KindUpstreamFetch {
		message = pe.Error()
	}
	sendError(w, r, pe.StatusCode(), string(pe.Kind), message, details)
}

// sendNotFound answers 404 for missing plugin files
func sendNotFound(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, plugins.ErrInvalidPluginID) {
		message = "Plugin not found"
	}
	sendError(w, r, http.StatusNotFound, "NOT_FOUND", message, nil)
}
