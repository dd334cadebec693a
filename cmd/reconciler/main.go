package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/decorlyhq/decorly-backend/internal/cart"
	"github.com/decorlyhq/decorly-backend/internal/checkout"
	"github.com/decorlyhq/decorly-backend/internal/orders"
	"github.com/decorlyhq/decorly-backend/pkg/config"
	"github.com/decorlyhq/decorly-backend/pkg/db"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
	"github.com/decorlyhq/decorly-backend/pkg/metrics"
	"github.com/decorlyhq/decorly-backend/pkg/migrate"
	"github.com/decorlyhq/decorly-backend/pkg/outbox"
	"github.com/decorlyhq/decorly-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	jobs := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	reconciler := checkout.NewReconciler(
		cart.NewRepository(dbClient.DB()),
		orders.NewRepository(dbClient.DB()),
		squareClient,
		dbClient,
		outbox.NewEmitter(),
		cfg.Reconciler.BatchSize,
		jobs,
		logg,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Reconciler.Interval.String(),
	})
	logg.Info(ctx, "starting checkout reconciler")

	if err := run(ctx, reconciler, cfg.Reconciler.Interval, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconciler stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reconciler shutting down gracefully")
}

func run(ctx context.Context, reconciler *checkout.Reconciler, interval time.Duration, logg *logger.Logger) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Sweep once at startup so a crash loop does not starve stuck groups.
	if err := reconciler.Run(ctx); err != nil {
		logg.Error(ctx, "reconcile sweep failed", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := reconciler.Run(ctx); err != nil {
				logg.Error(ctx, "reconcile sweep failed", err)
			}
		}
	}
}
