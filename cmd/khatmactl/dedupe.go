package main

import (
	"fmt"
	"log/slog"

	"github.com/khatma-app/khatma/khatma/services"
	"github.com/spf13/cobra"
)

var dedupeDryRun bool

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Merge participants whose names normalize to the same key",
	Long: `Merge participants whose names normalize to the same key.

Rows created before the unique index on normalized names can hold
duplicates. For each group the participant with the most progress wins
(completions weigh more than active slots, newest id breaks ties) and
the others' rows are folded into it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		merged, err := services.NewDedupeService(db.BunDB()).Sweep(ctx, dedupeDryRun)
		if err != nil {
			return err
		}

		if dedupeDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "dry run: %d duplicate participants would be merged\n", merged)
			return nil
		}
		slog.Info("Dedupe sweep finished", slog.Int("merged", merged))
		fmt.Fprintf(cmd.OutOrStdout(), "merged %d duplicate participants\n", merged)
		return nil
	},
}

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeDryRun, "dry-run", false, "report duplicates without touching the database")
}
