package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trmnlp/trmnlp/internal/auth"
	"github.com/trmnlp/trmnlp/internal/database"
)

// AdminHandler manages registered devices
type AdminHandler struct {
	devices *database.DeviceStore
	auth    *auth.Service
	logger  *slog.Logger
}

// NewAdminHandler creates an admin handler. authService may be nil when
// admin tokens are not configured.
func NewAdminHandler(devices *database.DeviceStore, authService *auth.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		devices: devices,
		auth:    authService,
		logger:  logger.With("component", "admin"),
	}
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil {
		sendError(w, r, http.StatusNotFound, "NOT_ENABLED", "Admin tokens are not configured", nil)
		return
	}

	req, ok := decodeJSON[auth.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("Admin login failed", "username", req.Username)
		sendError(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
		return
	}
	sendJSON(w, http.StatusOK, resp)
}

// ListDevices handles GET /api/admin/devices
func (h *AdminHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if h.handleStoreError(w, r, err) {
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// CreateDevice handles POST /api/admin/devices
func (h *AdminHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeJSON[database.Device](w, r)
	if !ok {
		return
	}

	device, err := h.devices.Create(r.Context(), input)
	if h.handleStoreError(w, r, err) {
		return
	}

	h.logger.Info("Device added", "mac", device.MAC)
	sendJSON(w, http.StatusCreated, map[string]any{
		"message": "Device added successfully",
		"device":  device,
	})
}

// UpdateDevice handles PUT /api/admin/devices/{mac}
func (h *AdminHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeJSON[database.Device](w, r)
	if !ok {
		return
	}

	device, err := h.devices.Update(r.Context(), chi.URLParam(r, "mac"), input)
	if h.handleStoreError(w, r, err) {
		return
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"message": "Device updated successfully",
		"device":  device,
	})
}

// DeleteDevice handles DELETE /api/admin/devices/{mac}
func (h *AdminHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	if h.handleStoreError(w, r, h.devices.Delete(r.Context(), mac)) {
		return
	}

	h.logger.Info("Device deleted", "mac", mac)
	sendJSON(w, http.StatusOK, map[string]any{"message": "Device deleted successfully"})
}

// handleStoreError sends the matching error response and reports whether err was set
func (h *AdminHandler) handleStoreError(w http.ResponseWriter, r *http.Request, err error) bool {
	if err == nil {
		return false
	}

	var verrs *database.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		sendError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Missing or invalid fields", verrs.Errors)
	case errors.Is(err, database.ErrNotFound):
		sendError(w, r, http.StatusNotFound, "NOT_FOUND", "Device not found", nil)
	case errors.Is(err, database.ErrDuplicate):
		sendError(w, r, http.StatusConflict, "CONFLICT", "Device already exists", nil)
	default:
		h.logger.Error("Device store error", "error", err)
		sendError(w, r, http.StatusInternalServerError, "DB_ERROR", "Database error", nil)
	}
	return true
}
