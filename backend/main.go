package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/khatma-app/khatma/backend/handlers"
	"github.com/khatma-app/khatma/backend/middleware"
	webservices "github.com/khatma-app/khatma/backend/services"
	"github.com/khatma-app/khatma/khatma"
	"github.com/khatma-app/khatma/khatma/database"
	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/khatma-app/khatma/khatma/logger"
	"github.com/khatma-app/khatma/khatma/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	customHandler := logger.NewHandler("Khatma-Backend")
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting Khatma Backend API",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := khatma.LoadConfig(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slog.Info("Connecting to database...")
	db, err := database.New(ctx, database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	})
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Database connected successfully")

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	hizbRepo := repositories.NewHizbRepository(db.BunDB())
	khatmaRepo := repositories.NewKhatmaRepository(db.BunDB())
	participantRepo := repositories.NewParticipantRepository(db.BunDB())

	board := services.NewBoardService(hizbRepo, khatmaRepo)
	board.SetPolicies(cyclePolicy(cfg.Cycle.LegacyStrongReset), cyclePolicy(cfg.Cycle.TenantStrongReset))

	webApp := &handlers.WebApp{
		DB:          db,
		Board:       board,
		Identity:    services.NewIdentityService(participantRepo),
		Khatmas:     services.NewKhatmaService(khatmaRepo),
		Intentions:  repositories.NewIntentionRepository(db.BunDB()),
		StatusCache: webservices.NewStatusCache(),
		Version:     version,
		Commit:      commit,
	}

	app := fiber.New(fiber.Config{
		AppName:      "Khatma Backend API",
		ServerHeader: "Khatma-Backend",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Web.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Dev-Key",
	}))
	app.Use(middleware.LoggingMiddleware())

	setupRoutes(app, webApp, cfg)

	addr := cfg.Web.Addr
	if addr == "" {
		addr = ":5000"
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		slog.Info("Starting backend server", slog.String("address", addr))
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down backend server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Backend stopped", slog.String("error", err.Error()))
	}

	db.Close()
	slog.Info("Backend server shutdown complete")
}

func setupRoutes(app *fiber.App, webApp *handlers.WebApp, cfg *khatma.Config) {
	app.Get("/health", handlers.HealthCheck(webApp))

	api := app.Group("/api")

	// Board and identity
	api.Get("/khatma", handlers.Status(webApp))
	api.Get("/check_update", handlers.CheckUpdate(webApp))
	api.Post("/login", handlers.Login(webApp))
	api.Post("/join", handlers.Join(webApp))
	api.Post("/done", handlers.Done(webApp))
	api.Post("/done_all", handlers.DoneAll(webApp))
	api.Post("/undo_complete", handlers.UndoComplete(webApp))
	api.Post("/return", handlers.Return(webApp))

	// Khatma lifecycle and intention wall
	api.Post("/khatma/create", handlers.CreateKhatma(webApp))
	api.Post("/user/update_name", handlers.UpdateName(webApp))
	api.Post("/intention", handlers.AddIntention(webApp))
	api.Post("/intention/delete", handlers.DeleteIntention(webApp))

	// Per-khatma admin
	admin := api.Group("/admin")
	admin.Post("/login", handlers.AdminLogin(webApp))
	admin.Get("/users", handlers.AdminUsers(webApp))
	admin.Get("/user_hizbs", handlers.AdminUserHizbs(webApp))
	admin.Post("/control", handlers.AdminControl(webApp))

	// Developer dashboard
	dev := api.Group("/dev")
	dev.Use(middleware.DevAuthRequired(cfg.Web.DevKey))
	dev.Get("/stats", handlers.DevStats(webApp))
	dev.Get("/khatmas", handlers.DevKhatmas(webApp))
	dev.Get("/khatma/details", handlers.DevKhatmaDetails(webApp))
	dev.Post("/khatma/remove_user", handlers.DevRemoveUser(webApp))
	dev.Post("/khatma/reset", handlers.DevResetKhatma(webApp))
	dev.Post("/khatma/delete", handlers.DevDeleteKhatma(webApp))
	dev.Post("/khatmas/bulk_delete", handlers.DevBulkDelete(webApp))
}

func cyclePolicy(strong bool) repositories.CyclePolicy {
	if strong {
		return repositories.LegacyCyclePolicy()
	}
	return repositories.DefaultCyclePolicy()
}
