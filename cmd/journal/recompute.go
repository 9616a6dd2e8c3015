package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/trade-journal/internal/journal"
)

func newRecomputeCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "recompute [strategy-id]",
		Short: "Recompute strategy aggregates from their trades",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("pass either a strategy id or --all")
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			svc := journal.NewService(db)
			if all {
				n, err := svc.RecomputeAll(ctx)
				a.logger.Info().Int("recomputed", n).Msg("Recomputed strategies")
				return err
			}

			strategy, err := svc.RecomputeStrategy(ctx, args[0])
			if err != nil {
				return err
			}
			a.logger.Info().
				Str("strategy_id", strategy.ID).
				Int("number_of_trades", strategy.NumberOfTrades).
				Str("net_pnl", strategy.NetPnl.String()).
				Msg("Recomputed strategy")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Recompute every strategy")
	return cmd
}
