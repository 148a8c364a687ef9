package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Truncate every application table",
	Long: `Truncate every application table.

This drops all khatmas, participants, slot state and intentions and
reseeds the legacy scope. It exists for staging resets, not routine
operation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !resetYes {
			fmt.Fprint(cmd.OutOrStdout(), "this wipes the whole database, type 'yes' to continue: ")
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if strings.TrimSpace(line) != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "aborted")
				return nil
			}
		}

		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ResetAppTables(ctx); err != nil {
			return err
		}
		if err := db.InitializeSchema(ctx); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "all application tables reset")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "skip the confirmation prompt")
}
