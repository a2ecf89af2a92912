package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/trogers1052/finfun/internal/config"
	"github.com/trogers1052/finfun/internal/logger"
)

const defaultConfigPath = "configs/config.yaml"

var (
	configPath string

	// Global state, set before any subcommand runs
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "finfun",
	Short: "Sector scoring and ranking of stocks",
	Long: `finfun fetches fundamentals for a list of stocks, scores each stock
against its sector peers on financial health and value, and publishes the
ranked results to CSV, a SQL table or Kafka. The serve command keeps a
cached analysis of the imported portfolio behind an HTTP API.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tickersCmd)
	rootCmd.AddCommand(portfolioCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == defaultConfigPath {
		// the default file is optional; defaults and FINFUN_ variables still apply
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log = logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if path != "" {
		log.Debug().Str("path", path).Msg("configuration loaded")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
