package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/commands"
	"github.com/khatma-app/khatma/khatma/database"
	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/khatma-app/khatma/khatma/handlers"
	"github.com/khatma-app/khatma/khatma/logger"
	"github.com/khatma-app/khatma/khatma/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler("Khatma")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Khatma Discord Bot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := khatma.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	dbConfig := database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	}

	db, err := database.New(ctx, dbConfig)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	defer db.Close()

	b := khatma.New(*cfg, version, commit)
	b.DB = db

	hizbRepo := repositories.NewHizbRepository(db.BunDB())
	khatmaRepo := repositories.NewKhatmaRepository(db.BunDB())
	participantRepo := repositories.NewParticipantRepository(db.BunDB())

	b.Board = services.NewBoardService(hizbRepo, khatmaRepo)
	b.Board.SetPolicies(cyclePolicy(cfg.Cycle.LegacyStrongReset), cyclePolicy(cfg.Cycle.TenantStrongReset))
	b.Identity = services.NewIdentityService(participantRepo)
	b.Khatmas = services.NewKhatmaService(khatmaRepo)
	b.Intentions = repositories.NewIntentionRepository(db.BunDB())

	h := handler.New()

	h.Command("/join", handlers.WrapWithLogging("join", commands.JoinHandler(b)))
	h.Command("/release", handlers.WrapWithLogging("release", commands.ReleaseHandler(b)))
	h.Command("/done", handlers.WrapWithLogging("done", commands.DoneHandler(b)))
	h.Command("/undo", handlers.WrapWithLogging("undo", commands.UndoHandler(b)))
	h.Command("/myhizb", handlers.WrapWithLogging("myhizb", commands.MyHizbHandler(b)))
	h.Command("/status", handlers.WrapWithLogging("status", commands.StatusHandler(b)))
	h.Command("/intention", handlers.WrapWithLogging("intention", commands.IntentionHandler(b)))
	h.Command("/deadline", handlers.WrapWithLogging("deadline", commands.DeadlineHandler(b)))
	h.Command("/reset", handlers.WrapWithLogging("reset", commands.ResetHandler(b)))
	h.Component("/reset/", handlers.WrapComponentWithLogging("reset", commands.ResetButtonHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
			os.Exit(-1)
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}

	slog.Info("Khatma bot is running",
		slog.String("type", "sys"),
		slog.String("version", version))

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-s
	slog.Info("Shutting down bot...", slog.String("type", "sys"))
}

func cyclePolicy(strong bool) repositories.CyclePolicy {
	if strong {
		return repositories.LegacyCyclePolicy()
	}
	return repositories.DefaultCyclePolicy()
}
