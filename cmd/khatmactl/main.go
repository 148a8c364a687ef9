package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/database"
	"github.com/khatma-app/khatma/khatma/logger"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "khatmactl",
	Short:         "Operational tooling for the khatma database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config")
	rootCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
}

// openDB connects using the shared config so every subcommand talks to
// the same database as the bot and the backend.
func openDB(ctx context.Context) (*database.DB, error) {
	cfg, err := khatma.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler("khatmactl")))

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
