package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/trogers1052/trade-journal/internal/config"
	"github.com/trogers1052/trade-journal/internal/database"
	"github.com/trogers1052/trade-journal/internal/logging"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "journal",
		Short:         "Trading journal service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a.cfg = cfg

			logCfg := logging.DefaultConfig()
			logCfg.Level = cfg.Log.Level
			logCfg.JSON = cfg.Log.JSON
			logCfg.FilePath = cfg.Log.File
			a.logger = logging.New(logCfg)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (optional)")

	cmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newRecomputeCmd(a),
	)
	return cmd
}

// openDB connects to Postgres and applies pending migrations
func (a *app) openDB() (*database.DB, error) {
	db, err := database.New(a.cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
