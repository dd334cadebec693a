package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/decorlyhq/decorly-backend/api/routes"
	"github.com/decorlyhq/decorly-backend/internal/cart"
	"github.com/decorlyhq/decorly-backend/internal/checkout"
	"github.com/decorlyhq/decorly-backend/internal/orders"
	"github.com/decorlyhq/decorly-backend/internal/projects"
	"github.com/decorlyhq/decorly-backend/internal/settlement"
	squarewebhook "github.com/decorlyhq/decorly-backend/internal/webhooks/square"
	"github.com/decorlyhq/decorly-backend/pkg/config"
	"github.com/decorlyhq/decorly-backend/pkg/db"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
	"github.com/decorlyhq/decorly-backend/pkg/metrics"
	"github.com/decorlyhq/decorly-backend/pkg/migrate"
	"github.com/decorlyhq/decorly-backend/pkg/outbox"
	"github.com/decorlyhq/decorly-backend/pkg/redis"
	"github.com/decorlyhq/decorly-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	commerce := metrics.NewCommerceMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())
	projectsRepo := projects.NewRepository(dbClient.DB())
	emitter := outbox.NewEmitter()

	cartService := cart.NewService(cartRepo, logg)
	ordersService := orders.NewService(ordersRepo, logg)
	checkoutService := checkout.NewService(cartRepo, ordersRepo, squareClient, dbClient, emitter, cfg.Checkout, commerce, logg)
	projectsService := projects.NewService(projectsRepo)
	settlementService := settlement.NewService(settlementRepo, projectsService, ordersService, commerce, logg)
	webhookService := squarewebhook.NewService(ordersService, redisClient, commerce, logg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			Square:       squareClient,
			Registry:     registry,
			HTTPMetrics:  httpMetrics,
			Cart:         cartService,
			Checkout:     checkoutService,
			Orders:       ordersService,
			Settlement:   settlementService,
			SquareEvents: webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
