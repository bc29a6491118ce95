package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"space-emissions/internal/store"
)

// migrateCmd manages the database schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Apply or roll back database migrations.

Available subcommands:
  up      - Apply all pending migrations
  down    - Roll back the most recent migration
  version - Print the current schema version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return st.Migrate()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			return st.MigrateDown()
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			version, dirty, err := st.MigrateVersion()
			if err != nil {
				return err
			}
			if dirty {
				fmt.Printf("version %d (dirty)\n", version)
			} else {
				fmt.Printf("version %d\n", version)
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

// withStore opens the store without auto-migrating, runs fn, closes.
func withStore(fn func(*store.Store) error) error {
	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Data.Database), 0o755); err != nil {
		return err
	}
	st, err := store.Open(cfg.Data.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()
	return fn(st)
}
