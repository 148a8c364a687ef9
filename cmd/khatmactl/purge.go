package main

import (
	"fmt"

	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/khatma-app/khatma/khatma/services"
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <khatma-id>",
	Short: "Delete a khatma and every row that belongs to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := services.NewKhatmaService(repositories.NewKhatmaRepository(db.BunDB()))
		if err := svc.Purge(ctx, args[0]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "purged khatma %s\n", args[0])
		return nil
	},
}
