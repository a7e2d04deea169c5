package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/trmnlp/trmnlp/internal/assets"
	"github.com/trmnlp/trmnlp/internal/config"
	"github.com/trmnlp/trmnlp/internal/device"
	"github.com/trmnlp/trmnlp/internal/plugins"
	"github.com/trmnlp/trmnlp/internal/preview"
)

var (
	cmdAssets = &cobra.Command{
		Use:   "assets",
		Short: "Download the design-system assets into the cache directory",
		Args:  cobra.NoArgs,
		RunE:  runCmdAssets,
	}

	cmdResolve = &cobra.Command{
		Use:   "resolve [plugin-id]",
		Short: "Print the polling request a live preview of the plugin would send",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCmdResolve,
	}

	cmdConfig = &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}

	cmdConfigExample = &cobra.Command{
		Use:   "example",
		Short: "Print an example configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.DumpExampleConfig(cmd.OutOrStdout())
		},
	}

	cmdVersion = &cobra.Command{
		Use:   "version",
		Short: "Print the trmnlp version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
)

func init() {
	cmdConfig.AddCommand(cmdConfigExample)
	RootCmd.AddCommand(cmdAssets, cmdResolve, cmdConfig, cmdVersion)
}

func runCmdAssets(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := config.InitLogger(cfg.Logging)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	downloader := assets.NewDownloader(&http.Client{Timeout: time.Minute}, cfg.Assets.CDN, cfg.Assets.CacheDir, logger)
	if err := downloader.DownloadAll(ctx); err != nil {
		return err
	}
	logger.Info("Design-system assets downloaded", "dir", downloader.CacheDir())
	return nil
}

func runCmdResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := config.InitLogger(cfg.Logging)

	dev, err := device.Load(cfg.Device.DataFile)
	if err != nil {
		return fmt.Errorf("failed to load device data: %w", err)
	}

	registry := plugins.NewRegistry(cfg.Plugins.Path, logger)
	id := registry.DefaultID()
	if len(args) == 1 {
		id = args[0]
	}
	if id == "" {
		return fmt.Errorf("plugin id required: %s holds more than one plugin", cfg.Plugins.Path)
	}

	svc := preview.NewService(registry, dev, nil, nil, nil, logger)
	req, err := svc.Resolve(id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(req); err != nil {
		return err
	}
	if len(req.Unresolved) > 0 {
		fmt.Fprintf(os.Stderr, "unresolved tokens: %v\n", req.Unresolved)
	}
	return nil
}
