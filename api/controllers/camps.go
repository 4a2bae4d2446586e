package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/api/middleware"
	"github.com/osei-labs/flocktrack-backend/api/responses"
	"github.com/osei-labs/flocktrack-backend/api/validators"
	"github.com/osei-labs/flocktrack-backend/internal/camps"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/types"
)

// CampsList returns the camps visible to the caller with member counts.
func CampsList(svc camps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "camp service unavailable"))
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

// CampGet returns one camp by id.
func CampGet(svc camps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "camp service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "campID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid camp id"))
			return
		}

		camp, err := svc.GetByID(r.Context(), caller, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, camp)
	}
}

// CampCreate registers a new camp. Admin only.
func CampCreate(svc camps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "camp service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		var body camps.CreateCampInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		camp, err := svc.Create(r.Context(), caller, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, camp)
	}
}

type campUpdateRequest struct {
	Name            *string            `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Location        *string            `json:"location,omitempty" validate:"omitempty,max=200"`
	LeaderAccountID types.NullableUUID `json:"leader_account_id,omitempty"`
}

func (req campUpdateRequest) toInput() camps.UpdateCampInput {
	input := camps.UpdateCampInput{
		Name:     req.Name,
		Location: req.Location,
	}
	if req.LeaderAccountID.Valid {
		value := req.LeaderAccountID.Value
		input.LeaderAccountID = &value
	}
	return input
}

// CampUpdate applies a partial update; a null leader_account_id clears the
// leader designation.
func CampUpdate(svc camps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "camp service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "campID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid camp id"))
			return
		}

		var body campUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		camp, err := svc.Update(r.Context(), caller, id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, camp)
	}
}

// CampDelete removes an empty camp. Admin only; declined while members remain.
func CampDelete(svc camps.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "camp service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "campID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid camp id"))
			return
		}

		if err := svc.Delete(r.Context(), caller, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
