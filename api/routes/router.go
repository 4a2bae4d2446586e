package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/osei-labs/flocktrack-backend/api/controllers"
	"github.com/osei-labs/flocktrack-backend/api/middleware"
	"github.com/osei-labs/flocktrack-backend/internal/analytics"
	"github.com/osei-labs/flocktrack-backend/internal/assignments"
	"github.com/osei-labs/flocktrack-backend/internal/attendance"
	"github.com/osei-labs/flocktrack-backend/internal/auth"
	"github.com/osei-labs/flocktrack-backend/internal/camps"
	"github.com/osei-labs/flocktrack-backend/internal/events"
	"github.com/osei-labs/flocktrack-backend/internal/followups"
	"github.com/osei-labs/flocktrack-backend/internal/members"
	"github.com/osei-labs/flocktrack-backend/internal/messaging"
	"github.com/osei-labs/flocktrack-backend/pkg/auth/session"
	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/db"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles everything the router wires into handlers.
type Services struct {
	Auth        auth.Service
	Members     members.Service
	Camps       camps.Service
	Events      events.Service
	Attendance  attendance.Service
	Assignments assignments.Service
	FollowUps   followups.Service
	Analytics   analytics.Service
	Messaging   messaging.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	// A nil *redis.Client must not become a non-nil interface downstream.
	var idemStore redis.IdempotencyStore
	var loginLimit func(http.Handler) http.Handler
	if redisClient != nil {
		idemStore = redisClient
		loginLimit = middleware.AuthRateLimit(loginPolicy, redisClient, logg)
	} else {
		loginLimit = middleware.AuthRateLimit(loginPolicy, nil, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Put("/members/update/{token}", controllers.MemberSelfUpdate(svcs.Members, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/members", func(r chi.Router) {
			r.Get("/", controllers.MembersList(svcs.Members, logg))
			r.Get("/{memberID}", controllers.MemberGet(svcs.Members, logg))
			r.Get("/{memberID}/followups", controllers.FollowUpsForMember(svcs.FollowUps, logg))
			r.Post("/{memberID}/followups", controllers.FollowUpLog(svcs.FollowUps, logg))
			r.Get("/{memberID}/birthday-wish", controllers.MessagingBirthdayWish(svcs.Messaging, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, string(enums.AccountRoleAdmin), string(enums.AccountRoleLeader)))
				r.Post("/", controllers.MemberCreate(svcs.Members, logg))
				r.Put("/{memberID}", controllers.MemberUpdate(svcs.Members, logg))
				r.Post("/bulk-delete", controllers.MembersBulkDelete(svcs.Members, logg))
				r.Post("/{memberID}/update-token", controllers.MemberIssueUpdateToken(svcs.Members, logg))
			})
		})

		r.Route("/v1/camps", func(r chi.Router) {
			r.Get("/", controllers.CampsList(svcs.Camps, logg))
			r.Get("/{campID}", controllers.CampGet(svcs.Camps, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, string(enums.AccountRoleAdmin)))
				r.Post("/", controllers.CampCreate(svcs.Camps, logg))
				r.Put("/{campID}", controllers.CampUpdate(svcs.Camps, logg))
				r.Delete("/{campID}", controllers.CampDelete(svcs.Camps, logg))
			})
		})

		r.Route("/v1/events", func(r chi.Router) {
			r.Get("/", controllers.EventsList(svcs.Events, logg))
			r.Get("/{eventID}", controllers.EventGet(svcs.Events, logg))
			r.Get("/{eventID}/attendance", controllers.AttendanceRoster(svcs.Attendance, logg))
			r.Post("/{eventID}/attendance", controllers.AttendanceMark(svcs.Attendance, logg))
			r.Post("/{eventID}/attendance/bulk", controllers.AttendanceBulkMark(svcs.Attendance, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, string(enums.AccountRoleAdmin), string(enums.AccountRoleLeader)))
				r.Post("/", controllers.EventCreate(svcs.Events, logg))
				r.Put("/{eventID}", controllers.EventUpdate(svcs.Events, logg))
				r.Delete("/{eventID}", controllers.EventDelete(svcs.Events, logg))
			})
		})

		r.Route("/v1/shepherds", func(r chi.Router) {
			r.Get("/{shepherdID}/members", controllers.ShepherdMembers(svcs.Assignments, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoles(logg, string(enums.AccountRoleAdmin), string(enums.AccountRoleLeader)))
				r.Post("/{shepherdID}/assignments", controllers.ShepherdAssign(svcs.Assignments, logg))
				r.Delete("/{shepherdID}/assignments/{memberID}", controllers.ShepherdUnassign(svcs.Assignments, logg))
			})
		})

		r.Get("/v1/assignments", controllers.AssignmentsList(svcs.Assignments, logg))

		r.Get("/v1/followups/due", controllers.FollowUpsDue(svcs.FollowUps, logg))

		r.Route("/v1/analytics", func(r chi.Router) {
			r.Get("/members", controllers.AnalyticsMemberCounts(svcs.Analytics, logg))
			r.Get("/attendance", controllers.AnalyticsAttendanceRates(svcs.Analytics, logg))
			r.Get("/new-converts", controllers.AnalyticsNewConverts(svcs.Analytics, logg))
		})

		r.Route("/v1/messaging", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, string(enums.AccountRoleAdmin), string(enums.AccountRoleLeader)))
			r.Post("/sms", controllers.MessagingBulkSMS(svcs.Messaging, logg))
			r.Get("/birthdays", controllers.MessagingUpcomingBirthdays(svcs.Messaging, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRoles(logg, string(enums.AccountRoleAdmin)))
		r.Get("/ping", controllers.AdminPing())
	})

	return r
}
