package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osei-labs/flocktrack-backend/internal/cron"
	"github.com/osei-labs/flocktrack-backend/internal/members"
	"github.com/osei-labs/flocktrack-backend/pkg/aiwish"
	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/db"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/metrics"
	"github.com/osei-labs/flocktrack-backend/pkg/migrate"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/redis"
)

const lockKeyFormat = "ft:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	membersRepo := members.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	birthdayParams := cron.BirthdayGreetingsJobParams{
		Logger:  logg,
		DB:      dbClient,
		Members: membersRepo,
		Outbox:  outboxService,
	}
	if cfg.Wishes.BaseURL != "" {
		wishClient, err := aiwish.NewClient(cfg.Wishes)
		if err != nil {
			logg.Error(context.Background(), "failed to create wish client", err)
			os.Exit(1)
		}
		birthdayParams.Wishes = wishClient
	} else {
		logg.Warn(context.Background(), "wish vendor not configured, birthday greetings use the static template")
	}

	birthdayJob, err := cron.NewBirthdayGreetingsJob(birthdayParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create birthday greetings job", err)
		os.Exit(1)
	}

	tokenJob, err := cron.NewTokenCleanupJob(cron.TokenCleanupJobParams{
		Logger:     logg,
		Repository: membersRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create token cleanup job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(birthdayJob, tokenJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
