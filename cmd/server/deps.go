package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/uof-cases/incident-service/internal/agency"
	"github.com/uof-cases/incident-service/internal/config"
	"github.com/uof-cases/incident-service/internal/database"
	"github.com/uof-cases/incident-service/internal/events"
	"github.com/uof-cases/incident-service/internal/identity"
	"github.com/uof-cases/incident-service/internal/logging"
	"github.com/uof-cases/incident-service/internal/notify"
	"github.com/uof-cases/incident-service/internal/reminders"
	"github.com/uof-cases/incident-service/internal/services"
	"gorm.io/gorm"
)

// deps holds everything the commands share, built once from config.
type deps struct {
	cfg        *config.Config
	db         *gorm.DB
	registry   *agency.Registry
	publisher  events.Publisher
	logHandler *logging.DBHandler
	reports    *services.ReportService
	statements *services.StatementService
	poller     *reminders.Poller

	closers []func()
}

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{cfg: cfg}

	registry, err := agency.LoadFromFile(cfg.AgenciesConfigPath)
	if err != nil {
		return nil, err
	}
	d.registry = registry
	slog.Info("agency registry loaded", "agencies", len(registry.All()))

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	d.db = db
	d.closers = append(d.closers, func() {
		if err := database.Close(db); err != nil {
			slog.Error("database close error", "error", err)
		}
	})

	// Database log handler (ERROR+ async batch)
	d.logHandler = logging.NewDBHandler(db)
	logging.Setup(cfg.LogLevel, d.logHandler)

	d.publisher = buildPublisher(ctx, cfg, d)

	var mailClient notify.EmailClient = notify.LogClient{}
	if cfg.NotifyAPIKey != "" {
		client, err := notify.NewClient(cfg.NotifyAPIURL, cfg.NotifyAPIKey, cfg.ExternalTimeout)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("invalid NOTIFY_API_KEY: %w", err)
		}
		mailClient = client
	} else {
		slog.Warn("NOTIFY_API_KEY not set, emails will only be logged")
	}
	mailer := notify.NewService(mailClient, registry, cfg)

	d.reports = services.NewReportService(db, cfg, mailer, d.publisher)
	d.statements = services.NewStatementService(db, d.reports, d.publisher)

	resolver := identity.NewResolver(identity.NewClient(cfg.AuthAPIURL, cfg.AuthAPIToken, cfg.ExternalTimeout))
	d.poller = reminders.NewPoller(db, cfg, mailer, resolver, d.publisher)
	return d, nil
}

func buildPublisher(ctx context.Context, cfg *config.Config, d *deps) events.Publisher {
	publishers := events.Multi{events.NewLogPublisher(slog.Default())}
	if cfg.RedisAddr == "" {
		return publishers
	}

	redisPub, err := events.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.EventsChannel)
	if err != nil {
		slog.Warn("redis unavailable, events will only be logged", "addr", cfg.RedisAddr, "error", err)
		return publishers
	}
	d.closers = append(d.closers, func() { _ = redisPub.Close() })
	return append(publishers, redisPub)
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	if d.logHandler != nil {
		d.logHandler.Stop()
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func initSentry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		Environment:      cfg.AppEnv,
	}); err != nil {
		slog.Error("sentry init failed", "error", err)
		return func() {}
	}
	return func() { sentry.Flush(2 * time.Second) }
}
