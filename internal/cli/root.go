// Package cli implements the simula command-line surface.
package cli

import (
	"database/sql"
	"os"

	"github.com/spf13/cobra"

	"github.com/elvis2workspace/pg-simula/internal/action"
	"github.com/elvis2workspace/pg-simula/internal/config"
	"github.com/elvis2workspace/pg-simula/internal/store"
)

var (
	cfgPath string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "simula",
	Short: "Failure simulation for SQL-backed services",
	Long: "Declares which operations should fail, and how: abort, crash,\n" +
		"delay, or session termination. Rules live in the simula_events\n" +
		"relation and fire the next time a matching statement runs with\n" +
		"injection enabled.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to simula.yaml (default ~/.simula/simula.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the database (overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	return cfg, nil
}

// openRuleStore opens the configured database and a guard-free store for
// out-of-session admin calls.
func openRuleStore() (*sql.DB, *store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, store.New(db, action.NewRegistry(), nil), nil
}
