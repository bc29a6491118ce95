package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"space-emissions/internal/config"
	"space-emissions/internal/store"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "eocalc",
	Short: "Estimate air pollutant emissions from satellite observations",
	Long: `eocalc estimates emissions of air pollutants for a region and period
from earth observation data.

Typical workflow:
  1. eocalc download tropomi ...  fetch satellite products
  2. eocalc download era5 ...     fetch matching wind fields
  3. eocalc import ...            load extracted observations
  4. eocalc run ...               estimate emissions
  5. eocalc serve                 browse results in the dashboard`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv builds the shared pieces every command needs.
func loadEnv() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore opens the configured database and applies pending migrations.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Data.Database), 0o755); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Data.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
