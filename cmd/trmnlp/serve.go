package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/trmnlp/trmnlp/internal/api"
	"github.com/trmnlp/trmnlp/internal/assets"
	"github.com/trmnlp/trmnlp/internal/auth"
	"github.com/trmnlp/trmnlp/internal/config"
	"github.com/trmnlp/trmnlp/internal/database"
	"github.com/trmnlp/trmnlp/internal/device"
	"github.com/trmnlp/trmnlp/internal/executor"
	"github.com/trmnlp/trmnlp/internal/imaging"
	"github.com/trmnlp/trmnlp/internal/metrics"
	"github.com/trmnlp/trmnlp/internal/plugins"
	"github.com/trmnlp/trmnlp/internal/preview"
	"github.com/trmnlp/trmnlp/internal/ratelimit"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview server",
	RunE:  runCmdServe,
}

func init() {
	RootCmd.AddCommand(cmdServe)
}

func runCmdServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := config.InitLogger(cfg.Logging)
	logger.Info("Starting trmnlp",
		"version", version,
		"config", cfg.Source,
		"plugins_path", cfg.Plugins.Path,
		"port", cfg.Server.Port,
		"assets_mode", cfg.Assets.Mode,
		"image_generation", cfg.Images.Enabled,
		"admin_mode", cfg.Admin.Enabled,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev, err := device.Load(cfg.Device.DataFile)
	if err != nil {
		return fmt.Errorf("failed to load device data: %w", err)
	}
	if !dev.Empty() {
		logger.Info("Device data loaded", "path", dev.Path())
	}

	// Initialize plugin registry
	registry := plugins.NewRegistry(cfg.Plugins.Path, logger)
	if err := registry.Scan(); err != nil {
		return fmt.Errorf("failed to scan plugins: %w", err)
	}
	recordPlugins(registry, logger)

	if cfg.Plugins.Watch {
		watcher, err := plugins.NewWatcher(registry)
		if err != nil {
			logger.Warn("Plugin watcher unavailable", "error", err)
		} else {
			watcher.OnScan(func() { recordPlugins(registry, logger) })
			if err := watcher.Start(ctx); err != nil {
				logger.Warn("Failed to watch plugins directory", "error", err)
			}
			defer watcher.Stop()
		}
	}

	// Design-system assets; a failed pre-fetch is fatal
	assetHandler, scheduler, err := setupAssets(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
	}

	limiter := ratelimit.New(cfg.Preview.MaxRequestsPer5Min, ratelimit.DefaultWindow, nil)
	if err := metrics.TrackRateLimit(prometheus.DefaultRegisterer, limiter); err != nil {
		logger.Warn("Rate limit metrics unavailable", "error", err)
	}
	_, capacity := limiter.Stats()
	logger.Info("Live fetch rate limit", "capacity", capacity, "window", limiter.Window())
	svc := preview.NewService(
		registry,
		dev,
		limiter,
		preview.NewFetcher(nil, cfg.Preview.FetchTimeout(), logger),
		preview.NewRenderer(preview.DefaultPageAssets),
		logger,
	)

	images := imaging.NewGenerator(
		cfg.Images.Enabled,
		imaging.NewScreenshotter(cfg.Images.BrowserBin, cfg.Images.Delay(), logger),
		imaging.NewConverter(executor.NewExec(logger), cfg.Images.ConvertBin, cfg.Images.ConvertTimeout(), ""),
		logger,
	)

	deps := &api.Dependencies{
		Config:   cfg,
		Registry: registry,
		Preview:  svc,
		Images:   images,
		Assets:   assetHandler,
		Logger:   logger,
		Version:  version,
	}

	if cfg.Admin.Enabled {
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		// Run embedded migrations (compiled into the binary)
		if err := database.RunMigrations(db); err != nil {
			return err
		}
		deps.DB = db
		deps.Devices = database.NewDeviceStore(db)

		if cfg.Admin.TokensEnabled() {
			authService, err := auth.NewService(cfg.Admin.JWTSecret, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.JWTExpiry())
			if err != nil {
				return fmt.Errorf("failed to initialize auth service: %w", err)
			}
			deps.Auth = authService
		}
		logger.Info("Admin mode enabled", "database", cfg.Database.Path, "tokens", cfg.Admin.TokensEnabled())
	}

	srv := api.NewServer(cfg, api.NewRouter(deps))

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "url", cfg.Server.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down server...")

	// Cancel the main context to signal all workers to stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func recordPlugins(registry *plugins.Registry, logger *slog.Logger) {
	list := registry.List()
	metrics.PluginsLoaded.Set(float64(len(list)))
	logger.Info("Plugins loaded", "count", len(list), "single_mode", registry.SingleMode())
	for _, p := range list {
		logger.Debug("  Plugin registered", "id", p.ID, "name", p.Name)
	}
}

func setupAssets(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, *assets.Scheduler, error) {
	client := &http.Client{Timeout: time.Minute}

	if cfg.Assets.Mode == config.AssetModeProxy {
		logger.Info("Proxying design-system assets", "cdn", cfg.Assets.CDN)
		return assets.NewProxy(client, cfg.Assets.CDN, cfg.Assets.ProxyTTL(), logger), nil, nil
	}

	downloader := assets.NewDownloader(client, cfg.Assets.CDN, cfg.Assets.CacheDir, logger)
	if err := downloader.DownloadAll(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to download design-system assets: %w", err)
	}

	var scheduler *assets.Scheduler
	if cfg.Assets.RefreshSchedule != "" {
		s, err := assets.NewScheduler(cfg.Assets.RefreshSchedule, downloader, logger)
		if err != nil {
			return nil, nil, err
		}
		scheduler = s
	}

	return http.FileServer(http.Dir(downloader.CacheDir())), scheduler, nil
}
