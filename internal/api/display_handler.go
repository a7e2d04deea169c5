package api

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"

	"github.com/trmnlp/trmnlp/internal/database"
	"github.com/trmnlp/trmnlp/internal/plugins"
)

const firmwareURL = "https://trmnl.s3.us-east-2.amazonaws.com/path-to-firmware.bin"

// DisplayResponse mimics the device display endpoint of the TRMNL server
type DisplayResponse struct {
	Status         int    `json:"status"`
	ImageURL       string `json:"image_url"`
	Filename       string `json:"filename"`
	UpdateFirmware bool   `json:"update_firmware"`
	FirmwareURL    string `json:"firmware_url"`
	RefreshRate    string `json:"refresh_rate"`
	ResetFirmware  bool   `json:"reset_firmware"`
}

// VersionResponse reports the build version and feature flags
type VersionResponse struct {
	Version                string `json:"version"`
	ImageGenerationEnabled bool   `json:"imageGenerationEnabled"`
}

// DisplayHandler serves the device-facing mock endpoints
type DisplayHandler struct {
	registry    *plugins.Registry
	devices     *database.DeviceStore
	layout      string
	refreshRate int
	version     string
	images      bool
	pick        func(n int) int
}

// NewDisplayHandler creates a display handler. devices may be nil.
func NewDisplayHandler(registry *plugins.Registry, devices *database.DeviceStore, layout string, refreshRate int, version string, imagesEnabled bool) *DisplayHandler {
	return &DisplayHandler{
		registry:    registry,
		devices:     devices,
		layout:      layout,
		refreshRate: refreshRate,
		version:     version,
		images:      imagesEnabled,
		pick:        rand.IntN,
	}
}

// Display handles GET /api/display, pointing the device at a random plugin image
func (h *DisplayHandler) Display(w http.ResponseWriter, r *http.Request) {
	if h.devices != nil {
		if token := r.Header.Get("Access-Token"); token != "" {
			if _, err := h.devices.GetByAPIKey(r.Context(), token); err != nil {
				if errors.Is(err, database.ErrNotFound) {
					sendError(w, r, http.StatusUnauthorized, "UNKNOWN_DEVICE", "Unknown device", nil)
					return
				}
				sendError(w, r, http.StatusInternalServerError, "DB_ERROR", "Database error", nil)
				return
			}
		}
	}

	list := h.registry.List()
	if len(list) == 0 {
		sendError(w, r, http.StatusNotFound, "NOT_FOUND", "No plugins available", nil)
		return
	}
	plugin := list[h.pick(len(list))]

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	image := scheme + "://" + r.Host + "/api/image/"
	if plugin.ID != plugins.CurrentDirID {
		image += url.PathEscape(plugin.ID) + "/"
	}
	image += h.layout

	sendJSON(w, http.StatusOK, DisplayResponse{
		Status:         0,
		ImageURL:       image,
		Filename:       "trmnl-display.bmp",
		UpdateFirmware: false,
		FirmwareURL:    firmwareURL,
		RefreshRate:    strconv.Itoa(h.refreshRate),
		ResetFirmware:  false,
	})
}

// Version handles GET /api/version
func (h *DisplayHandler) Version(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, VersionResponse{
		Version:                h.version,
		ImageGenerationEnabled: h.images,
	})
}
