package api

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	pluginsRoot string
	db          *sql.DB
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(pluginsRoot string, db *sql.DB) *HealthHandler {
	return &HealthHandler{pluginsRoot: pluginsRoot, db: db}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Health handles GET /health (liveness probe)
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready handles GET /ready (readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	var failed string

	if info, err := os.Stat(h.pluginsRoot); err != nil || !info.IsDir() {
		checks["plugins"] = "unavailable"
		failed = "plugins directory is not readable"
	} else {
		checks["plugins"] = "ok"
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			checks["database"] = "unavailable"
			failed = "database ping failed"
		} else {
			checks["database"] = "ok"
		}
	}

	response := ReadinessResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Checks:    checks,
	}
	status := http.StatusOK
	if failed != "" {
		response.Status = "not_ready"
		response.Error = failed
		status = http.StatusServiceUnavailable
	}
	sendJSON(w, status, response)
}
