package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/api/middleware"
	"github.com/osei-labs/flocktrack-backend/api/responses"
	"github.com/osei-labs/flocktrack-backend/api/validators"
	"github.com/osei-labs/flocktrack-backend/internal/assignments"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

type assignRequest struct {
	MemberIDs []uuid.UUID `json:"member_ids" validate:"required,min=1,max=200"`
}

// ShepherdAssign links members to a shepherd; existing pairs are skipped.
func ShepherdAssign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		shepherdID, err := uuid.Parse(chi.URLParam(r, "shepherdID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shepherd account id"))
			return
		}

		var body assignRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Assign(r.Context(), caller, shepherdID, body.MemberIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ShepherdUnassign removes one shepherd-member link.
func ShepherdUnassign(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		shepherdID, err := uuid.Parse(chi.URLParam(r, "shepherdID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shepherd account id"))
			return
		}

		memberID, err := uuid.Parse(chi.URLParam(r, "memberID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id"))
			return
		}

		if err := svc.Unassign(r.Context(), caller, shepherdID, memberID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "unassigned"})
	}
}

// ShepherdMembers lists the members assigned to one shepherd.
func ShepherdMembers(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		shepherdID, err := uuid.Parse(chi.URLParam(r, "shepherdID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shepherd account id"))
			return
		}

		result, err := svc.ListShepherdMembers(r.Context(), caller, shepherdID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AssignmentsList lists shepherd-member links visible to the caller.
func AssignmentsList(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		result, err := svc.List(r.Context(), caller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
