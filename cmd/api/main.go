package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/osei-labs/flocktrack-backend/api/routes"
	"github.com/osei-labs/flocktrack-backend/internal/accounts"
	"github.com/osei-labs/flocktrack-backend/internal/analytics"
	"github.com/osei-labs/flocktrack-backend/internal/assignments"
	"github.com/osei-labs/flocktrack-backend/internal/attendance"
	"github.com/osei-labs/flocktrack-backend/internal/auth"
	"github.com/osei-labs/flocktrack-backend/internal/camps"
	"github.com/osei-labs/flocktrack-backend/internal/events"
	"github.com/osei-labs/flocktrack-backend/internal/followups"
	"github.com/osei-labs/flocktrack-backend/internal/members"
	"github.com/osei-labs/flocktrack-backend/internal/messaging"
	"github.com/osei-labs/flocktrack-backend/pkg/aiwish"
	"github.com/osei-labs/flocktrack-backend/pkg/auth/session"
	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/db"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/migrate"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	svcs, err := buildServices(cfg, logg, dbClient, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessionManager *session.Manager) (routes.Services, error) {
	gormDB := dbClient.DB()

	accountsRepo := accounts.NewRepository(gormDB)
	membersRepo := members.NewRepository(gormDB)
	eventsRepo := events.NewRepository(gormDB)
	assignmentsRepo := assignments.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		AccountRepo:    accountsRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return routes.Services{}, err
	}

	syncService, err := accounts.NewSyncService(accountsRepo, outboxService, cfg.Password, cfg.Identity, logg)
	if err != nil {
		return routes.Services{}, err
	}

	memberService, err := members.NewService(membersRepo, syncService, dbClient)
	if err != nil {
		return routes.Services{}, err
	}

	campService, err := camps.NewService(camps.NewRepository(gormDB), logg)
	if err != nil {
		return routes.Services{}, err
	}

	eventService, err := events.NewService(eventsRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	attendanceService, err := attendance.NewService(attendance.NewRepository(gormDB), eventsRepo, membersRepo, assignmentsRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	assignmentService, err := assignments.NewService(assignmentsRepo, accountsRepo, membersRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	followUpService, err := followups.NewService(followups.NewRepository(gormDB), membersRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	analyticsService, err := analytics.NewService(analytics.NewRepository(gormDB), logg)
	if err != nil {
		return routes.Services{}, err
	}

	// An unconfigured wish vendor still yields a usable client value: Generate
	// refuses on the nil receiver and messaging falls back to the static wish.
	var wishClient *aiwish.Client
	if cfg.Wishes.BaseURL != "" {
		wishClient, err = aiwish.NewClient(cfg.Wishes)
		if err != nil {
			return routes.Services{}, err
		}
	} else {
		logg.Warn(context.Background(), "wish vendor not configured, birthday wishes use the static template")
	}

	messagingService, err := messaging.NewService(membersRepo, outboxService, dbClient, wishClient, cfg.Messaging, cfg.Wishes, logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:        authService,
		Members:     memberService,
		Camps:       campService,
		Events:      eventService,
		Attendance:  attendanceService,
		Assignments: assignmentService,
		FollowUps:   followUpService,
		Analytics:   analyticsService,
		Messaging:   messagingService,
	}, nil
}
