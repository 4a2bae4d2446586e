package controllers

import (
	"net/http"
	"time"

	"github.com/osei-labs/flocktrack-backend/api/middleware"
	"github.com/osei-labs/flocktrack-backend/api/responses"
	"github.com/osei-labs/flocktrack-backend/internal/analytics"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

// AnalyticsMemberCounts returns member totals grouped by role, status and
// category for the caller's scope.
func AnalyticsMemberCounts(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		result, err := svc.MemberCounts(r.Context(), caller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func analyticsRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseQueryTime(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseQueryTime(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from == nil || to == nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to query parameters are required")
	}
	return *from, *to, nil
}

// AnalyticsAttendanceRates reports per-event and overall attendance
// percentages across a date range.
func AnalyticsAttendanceRates(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		from, to, err := analyticsRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AttendanceRates(r.Context(), caller, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AnalyticsNewConverts counts new-convert registrations across a date range.
func AnalyticsNewConverts(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		from, to, err := analyticsRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.NewConverts(r.Context(), caller, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"new_converts": count})
	}
}
