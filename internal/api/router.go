package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trmnlp/trmnlp/internal/assets"
	"github.com/trmnlp/trmnlp/internal/auth"
	"github.com/trmnlp/trmnlp/internal/config"
	"github.com/trmnlp/trmnlp/internal/database"
	"github.com/trmnlp/trmnlp/internal/imaging"
	"github.com/trmnlp/trmnlp/internal/middleware"
	"github.com/trmnlp/trmnlp/internal/plugins"
	"github.com/trmnlp/trmnlp/internal/preview"
)

// Dependencies holds everything the router wires into handlers.
// DB, Devices, Auth and Assets may be nil.
type Dependencies struct {
	Config   *config.Config
	Registry *plugins.Registry
	Preview  *preview.Service
	Images   *imaging.Generator
	DB       *sql.DB
	Devices  *database.DeviceStore
	Auth     *auth.Service
	Assets   http.Handler
	Logger   *slog.Logger
	Version  string
}

// NewRouter creates and configures the API router
func NewRouter(deps *Dependencies) http.Handler {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	// CORS (if enabled)
	if cfg.CORS.Enabled {
		r.Use(middleware.CORS(
			cfg.CORS.AllowedOrigins,
			cfg.CORS.AllowedMethods,
			cfg.CORS.AllowedHeaders,
			cfg.CORS.MaxAgeSeconds,
		))
	}

	// Initialize handlers
	healthHandler := NewHealthHandler(deps.Registry.Root(), deps.DB)
	pluginHandler := NewPluginHandler(deps.Registry, deps.Preview)
	previewHandler := NewPreviewHandler(deps.Registry, deps.Preview, deps.Images,
		cfg.Server.BaseURL(), cfg.Images.RenderTimeout(), logger)
	displayHandler := NewDisplayHandler(deps.Registry, deps.Devices,
		cfg.Device.DefaultDisplayLayout, cfg.Device.RefreshRateSeconds, deps.Version, deps.Images.Enabled())

	// Public routes
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/preview/{layout}", previewHandler.Preview)
	r.Get("/preview/{plugin}/{layout}", previewHandler.Preview)

	r.Route("/api", func(r chi.Router) {
		r.Get("/plugins", pluginHandler.List)
		r.Get("/plugin-toml", pluginHandler.Settings)
		r.Get("/plugin-toml/{pluginId}", pluginHandler.Settings)
		r.Get("/layout/{layout}", pluginHandler.Layout)
		r.Get("/layout/{pluginId}/{layout}", pluginHandler.Layout)

		r.Get("/image/{layout}", previewHandler.Image)
		r.Get("/image/{plugin}/{layout}", previewHandler.Image)

		r.Get("/display", displayHandler.Display)
		r.Get("/version", displayHandler.Version)

		// Admin routes exist only in admin mode
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminGate(cfg.Admin.Enabled && deps.Devices != nil))

			adminHandler := NewAdminHandler(deps.Devices, deps.Auth, logger)
			r.Post("/login", adminHandler.Login)

			r.Group(func(r chi.Router) {
				if deps.Auth != nil {
					r.Use(middleware.JWTAuth(deps.Auth))
				}
				r.Get("/devices", adminHandler.ListDevices)
				r.Post("/devices", adminHandler.CreateDevice)
				r.Put("/devices/{mac}", adminHandler.UpdateDevice)
				r.Delete("/devices/{mac}", adminHandler.DeleteDevice)

				// Resolved requests carry .env secrets
				r.Get("/resolve", pluginHandler.Resolve)
				r.Get("/resolve/{pluginId}", pluginHandler.Resolve)
			})
		})
	})

	// Design-system assets
	if deps.Assets != nil {
		for _, prefix := range assets.Prefixes {
			r.Handle(prefix+"/*", deps.Assets)
		}
	}

	return r
}

// NewServer wraps the router in an http.Server using the configured timeouts
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout(),
		WriteTimeout:      cfg.Server.WriteTimeout(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
