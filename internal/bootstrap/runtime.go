// Package bootstrap assembles the process-wide dependencies shared by the
// HTTP server and the command line tool.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"myblog/internal/cache"
	"myblog/internal/config"
	"myblog/internal/database"
	"myblog/internal/mail"
	"myblog/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the long-lived dependencies built from one Config.
// Redis may be nil; Cache is then a pass-through.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	DB      *gorm.DB
	Redis   *redis.Client
	Cache   *cache.Cache
	Metrics *observability.Metrics
	Mailer  mail.Mailer

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to the database and Redis and sets up logging,
// tracing, metrics and outgoing mail.
func InitRuntime(cfg *config.Config) (*Runtime, error) {
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  observability.ServiceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg, log)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	metrics := observability.NewMetrics()
	// Redis is optional: nil means sessions, limiter and cache stay in-process.
	rdb := cache.Connect(cfg.RedisURL, log, metrics)

	return &Runtime{
		Config:          cfg,
		Logger:          log,
		DB:              db,
		Redis:           rdb,
		Cache:           cache.New(rdb, log),
		Metrics:         metrics,
		Mailer:          NewMailer(cfg, log),
		shutdownTracing: shutdown,
	}, nil
}

// NewMailer returns an SMTP mailer, or a mailer that only logs outgoing mail
// when no SMTP credentials are configured outside production.
func NewMailer(cfg *config.Config, log *slog.Logger) mail.Mailer {
	if cfg.MailUsername == "" && !cfg.IsProduction() {
		log.Info("Mail credentials not configured, reset mails are logged only")
		return mail.NewLogMailer(log)
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.MailServer,
		Port:     cfg.MailPort,
		UseTLS:   cfg.MailUseTLS,
		Username: cfg.MailUsername,
		Password: cfg.MailPassword,
	})
}

// Close releases Redis, the database pool and flushes pending spans.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := database.Close(r.DB); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}
