package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/api/middleware"
	"github.com/osei-labs/flocktrack-backend/api/responses"
	"github.com/osei-labs/flocktrack-backend/api/validators"
	"github.com/osei-labs/flocktrack-backend/internal/members"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/pagination"
	"github.com/osei-labs/flocktrack-backend/pkg/types"
)

type memberCreateRequest struct {
	FirstName     string     `json:"first_name" validate:"required,min=1,max=120"`
	LastName      string     `json:"last_name" validate:"required,min=1,max=120"`
	Email         *string    `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role          string     `json:"role" validate:"required"`
	Status        string     `json:"status,omitempty"`
	Category      string     `json:"category" validate:"required"`
	CampID        *uuid.UUID `json:"camp_id,omitempty"`
	Birthday      *time.Time `json:"birthday,omitempty"`
	Residence     *string    `json:"residence,omitempty" validate:"omitempty,max=200"`
	Region        *string    `json:"region,omitempty" validate:"omitempty,max=120"`
	GuardianName  *string    `json:"guardian_name,omitempty" validate:"omitempty,max=160"`
	GuardianPhone *string    `json:"guardian_phone,omitempty" validate:"omitempty,max=32"`
	PictureURL    *string    `json:"picture_url,omitempty" validate:"omitempty,url"`
	Tags          []string   `json:"tags,omitempty" validate:"max=20,dive,max=40"`
}

func (req memberCreateRequest) toInput() (members.CreateMemberInput, error) {
	role, err := enums.ParseMemberRole(req.Role)
	if err != nil {
		return members.CreateMemberInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member role")
	}
	status := enums.MemberStatusActive
	if req.Status != "" {
		status, err = enums.ParseMemberStatus(req.Status)
		if err != nil {
			return members.CreateMemberInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member status")
		}
	}
	category, err := enums.ParseMemberCategory(req.Category)
	if err != nil {
		return members.CreateMemberInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member category")
	}
	return members.CreateMemberInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Role:          role,
		Status:        status,
		Category:      category,
		CampID:        req.CampID,
		Birthday:      req.Birthday,
		Residence:     req.Residence,
		Region:        req.Region,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		PictureURL:    req.PictureURL,
		Tags:          req.Tags,
	}, nil
}

type memberUpdateRequest struct {
	FirstName     *string            `json:"first_name,omitempty" validate:"omitempty,min=1,max=120"`
	LastName      *string            `json:"last_name,omitempty" validate:"omitempty,min=1,max=120"`
	Email         *string            `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string            `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role          *string            `json:"role,omitempty"`
	Status        *string            `json:"status,omitempty"`
	Category      *string            `json:"category,omitempty"`
	CampID        types.NullableUUID `json:"camp_id,omitempty"`
	Birthday      *time.Time         `json:"birthday,omitempty"`
	Residence     *string            `json:"residence,omitempty" validate:"omitempty,max=200"`
	Region        *string            `json:"region,omitempty" validate:"omitempty,max=120"`
	GuardianName  *string            `json:"guardian_name,omitempty" validate:"omitempty,max=160"`
	GuardianPhone *string            `json:"guardian_phone,omitempty" validate:"omitempty,max=32"`
	PictureURL    *string            `json:"picture_url,omitempty" validate:"omitempty,url"`
	Tags          *[]string          `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=40"`
}

func (req memberUpdateRequest) toInput() (members.UpdateMemberInput, error) {
	input := members.UpdateMemberInput{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Birthday:      req.Birthday,
		Residence:     req.Residence,
		Region:        req.Region,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		PictureURL:    req.PictureURL,
		Tags:          req.Tags,
	}
	if req.Role != nil {
		role, err := enums.ParseMemberRole(*req.Role)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member role")
		}
		input.Role = &role
	}
	if req.Status != nil {
		status, err := enums.ParseMemberStatus(*req.Status)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member status")
		}
		input.Status = &status
	}
	if req.Category != nil {
		category, err := enums.ParseMemberCategory(*req.Category)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member category")
		}
		input.Category = &category
	}
	if req.CampID.Valid {
		value := req.CampID.Value
		input.CampID = &value
	}
	return input, nil
}

// MembersList returns one page of members visible to the caller.
func MembersList(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := members.ListParams{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 120),
			Page: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseMemberStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member status"))
				return
			}
			params.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, err := enums.ParseMemberCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member category"))
				return
			}
			params.Category = &category
		}

		result, err := svc.List(r.Context(), caller, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"members":     result.Members,
			"next_cursor": result.NextCursor,
		})
	}
}

// MemberGet returns one member by id, scoped to the caller.
func MemberGet(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "memberID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id"))
			return
		}

		member, err := svc.GetByID(r.Context(), caller, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, member)
	}
}

// MemberCreate registers a member; leaders are pinned to their own camp.
func MemberCreate(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		var body memberCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), caller, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// MemberUpdate applies a partial update to one member.
func MemberUpdate(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "memberID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id"))
			return
		}

		var body memberUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Update(r.Context(), caller, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type memberBulkDeleteRequest struct {
	MemberIDs []uuid.UUID `json:"member_ids" validate:"required,min=1,max=200"`
}

// MembersBulkDelete removes the selected members in one transaction.
func MembersBulkDelete(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		var body memberBulkDeleteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deleted, err := svc.BulkDelete(r.Context(), caller, body.MemberIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": deleted})
	}
}

// MemberIssueUpdateToken mints a single-use self-service update link token.
func MemberIssueUpdateToken(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		caller, ok := middleware.CallerFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account context missing"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "memberID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid member id"))
			return
		}

		token, expiresAt, err := svc.IssueUpdateToken(r.Context(), caller, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"token":      token,
			"expires_at": expiresAt,
		})
	}
}

type memberSelfUpdateRequest struct {
	Phone         *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	Birthday      *time.Time `json:"birthday,omitempty"`
	Residence     *string    `json:"residence,omitempty" validate:"omitempty,max=200"`
	Region        *string    `json:"region,omitempty" validate:"omitempty,max=120"`
	GuardianName  *string    `json:"guardian_name,omitempty" validate:"omitempty,max=160"`
	GuardianPhone *string    `json:"guardian_phone,omitempty" validate:"omitempty,max=32"`
	PictureURL    *string    `json:"picture_url,omitempty" validate:"omitempty,url"`
}

// MemberSelfUpdate is the unauthenticated token-gated profile update. The
// token is consumed on success.
func MemberSelfUpdate(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		token := strings.TrimSpace(chi.URLParam(r, "token"))
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "update token required"))
			return
		}

		var body memberSelfUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.UpdateWithToken(r.Context(), token, members.SelfUpdateInput{
			Phone:         body.Phone,
			Birthday:      body.Birthday,
			Residence:     body.Residence,
			Region:        body.Region,
			GuardianName:  body.GuardianName,
			GuardianPhone: body.GuardianPhone,
			PictureURL:    body.PictureURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, member)
	}
}
