package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/database"
	"github.com/uof-cases/incident-service/internal/handlers"
	"github.com/uof-cases/incident-service/internal/logging"
	"github.com/uof-cases/incident-service/internal/middleware"
	"github.com/uof-cases/incident-service/internal/reminders"
	"github.com/uof-cases/incident-service/internal/routes"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the statement reminder scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Structured logging (JSON to stdout)
	logging.Setup("info")

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := buildDeps(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return err
	}
	defer d.Close()

	if err := database.Migrate(d.db); err != nil {
		slog.Error("migration failed", "error", err)
		return err
	}

	flushSentry := initSentry(cfg)
	defer flushSentry()

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(d.db, logging.DefaultRetention, cleanupDone)
	defer close(cleanupDone)

	scheduler := reminders.NewScheduler(d.poller, cfg.ReminderPollInterval)
	if cfg.ReminderPollerEnabled {
		scheduler.Start()
		defer scheduler.Stop()
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		return c.Next()
	})

	routes.Setup(app, cfg, d.registry,
		handlers.NewHealthHandler(d.db, d.registry),
		handlers.NewReportHandler(d.reports),
		handlers.NewStatementHandler(d.statements),
		handlers.NewIncidentHandler(d.reports, d.statements, scheduler),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		slog.Error("server error", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
