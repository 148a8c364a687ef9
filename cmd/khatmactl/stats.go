package main

import (
	"fmt"

	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/khatma-app/khatma/khatma/services"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print global counters across all khatmas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := services.NewKhatmaService(repositories.NewKhatmaRepository(db.BunDB()))
		stats, err := svc.GlobalStats(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "khatmas:      %d\n", stats.Khatmas)
		fmt.Fprintf(cmd.OutOrStdout(), "participants: %d\n", stats.Participants)
		fmt.Fprintf(cmd.OutOrStdout(), "reads:        %d\n", stats.Reads)
		return nil
	},
}
