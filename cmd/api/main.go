package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luisarteaga/marketdesk-backend/api/controllers"
	"github.com/luisarteaga/marketdesk-backend/api/routes"
	"github.com/luisarteaga/marketdesk-backend/internal/duplicates"
	"github.com/luisarteaga/marketdesk-backend/internal/payoutrules"
	"github.com/luisarteaga/marketdesk-backend/internal/pending"
	"github.com/luisarteaga/marketdesk-backend/internal/refunds"
	"github.com/luisarteaga/marketdesk-backend/internal/settlement"
	"github.com/luisarteaga/marketdesk-backend/pkg/config"
	"github.com/luisarteaga/marketdesk-backend/pkg/db"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
	"github.com/luisarteaga/marketdesk-backend/pkg/metrics"
	"github.com/luisarteaga/marketdesk-backend/pkg/migrate"
	"github.com/luisarteaga/marketdesk-backend/pkg/outbox"
	"github.com/luisarteaga/marketdesk-backend/pkg/redis"
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

	registry := prometheus.NewRegistry()
	payoutMetrics := metrics.NewPayoutMetrics(registry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	rulesSvc, err := payoutrules.NewService(payoutrules.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create payout rule service", err)
		os.Exit(1)
	}

	pendingSvc, err := pending.NewService(pending.NewRepository(dbClient.DB()), rulesSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create pending resolver", err)
		os.Exit(1)
	}

	duplicatesSvc, err := duplicates.NewService(duplicates.NewRepository(dbClient.DB()), dbClient, outboxSvc, payoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create duplicates service", err)
		os.Exit(1)
	}

	settlementSvc, err := settlement.NewService(settlement.NewRepository(dbClient.DB()), pendingSvc, dbClient, outboxSvc, payoutMetrics, logg, cfg.Settlement)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	refundsSvc, err := refunds.NewService(refunds.NewRepository(dbClient.DB()), rulesSvc, dbClient, outboxSvc, payoutMetrics, cfg.Settlement)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

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

	router := routes.NewRouter(
		cfg,
		logg,
		redisClient,
		controllers.Dependencies{DB: dbClient, Redis: redisClient},
		registry,
		routes.Services{
			Rules:      rulesSvc,
			Pending:    pendingSvc,
			Duplicates: duplicatesSvc,
			Settlement: settlementSvc,
			Refunds:    refundsSvc,
		},
	)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
