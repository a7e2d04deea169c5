package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/trmnlp/trmnlp/internal/config"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	envFile    string

	RootCmd = &cobra.Command{
		Use:   "trmnlp",
		Short: "Local preview server for TRMNL plugins",
		Long: `trmnlp serves live previews of TRMNL e-ink plugins: it renders Liquid views
with sample or live polling data, and produces device BMP images.`,
		SilenceUsage: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Optional file of environment variables loaded before configuration")
}

// loadConfig applies the env file, then reads the configuration
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}
	return config.Load(configPath)
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
