package main

import (
	"github.com/spf13/cobra"

	"space-emissions/internal/api"
)

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadEnv()
		if err != nil {
			return err
		}
		app, err := api.NewApp(cfg, logger)
		if err != nil {
			return err
		}
		logger.Info("starting server", "addr", cfg.GetServerAddr())
		return app.Run(cfg.GetServerAddr())
	},
}
