package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/db"
	"github.com/osei-labs/flocktrack-backend/pkg/identity"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/metrics"
	"github.com/osei-labs/flocktrack-backend/pkg/migrate"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/idempotency"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/registry"
	"github.com/osei-labs/flocktrack-backend/pkg/redis"
	"github.com/osei-labs/flocktrack-backend/pkg/sms"
)

const processedMarkTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	guard, err := idempotency.NewManager(redisClient, processedMarkTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	var identityClient identityDispatcher
	if cfg.Identity.BaseURL != "" {
		client, err := identity.NewClient(cfg.Identity)
		if err != nil {
			logg.Error(context.Background(), "failed to create identity client", err)
			os.Exit(1)
		}
		identityClient = client
	} else {
		logg.Warn(context.Background(), "identity provider not configured, account sync events will dead-letter")
	}

	var smsClient smsDispatcher
	if cfg.SMS.BaseURL != "" {
		client, err := sms.NewClient(cfg.SMS)
		if err != nil {
			logg.Error(context.Background(), "failed to create sms client", err)
			os.Exit(1)
		}
		smsClient = client
	} else {
		logg.Warn(context.Background(), "sms vendor not configured, sms events will dead-letter")
	}

	service, err := NewService(ServiceParams{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Registry:    registry.NewEventRegistry(),
		DLQ:         outbox.NewDLQRepository(dbClient.DB()),
		Identity:    identityClient,
		SMS:         smsClient,
		Idempotency: guard,
		Metrics:     metrics.NewJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox dispatcher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting outbox dispatcher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox dispatcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox dispatcher shutting down gracefully")
}
