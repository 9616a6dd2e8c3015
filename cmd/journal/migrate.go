package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trogers1052/trade-journal/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.New(a.cfg.Database.ConnectionString())
			if err != nil {
				return err
			}
			defer db.Close()

			switch args[0] {
			case "up":
				err = db.MigrateUp()
			case "down":
				err = db.MigrateDown()
			default:
				return fmt.Errorf("unknown direction %q", args[0])
			}
			if err != nil {
				return err
			}

			a.logger.Info().Str("direction", args[0]).Msg("Migrations applied")
			return nil
		},
	}
}
