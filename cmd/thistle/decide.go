package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/thistle/pkg/decision"
	"github.com/Ramsey-B/thistle/pkg/gateway/postgres"
	"github.com/Ramsey-B/thistle/pkg/scoring"
)

func newDecideCommand(a *app) *cobra.Command {
	var quoteID string

	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Score a sourcing request's negotiations and record the decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			gateway := postgres.NewGateway(db, a.logger)
			coordinator := decision.NewCoordinator(gateway, scoring.NewEngine(a.benchmarks.Scoring), a.logger)

			d, err := coordinator.Decide(ctx, quoteID)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(d, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&quoteID, "quote", "", "sourcing request id")
	_ = cmd.MarkFlagRequired("quote")
	return cmd
}
