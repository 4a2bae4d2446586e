package camps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

// campRepository is the persistence surface the service needs.
type campRepository interface {
	Create(ctx context.Context, camp *models.Camp) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Camp, error)
	List(ctx context.Context) ([]CampCountRow, error)
	Update(ctx context.Context, camp *models.Camp) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountMembers(ctx context.Context, campID uuid.UUID) (int64, error)
}

// Service exposes camp management.
type Service interface {
	List(ctx context.Context, caller authz.Caller) ([]CampDTO, error)
	GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*CampDTO, error)
	Create(ctx context.Context, caller authz.Caller, input CreateCampInput) (*CampDTO, error)
	Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateCampInput) (*CampDTO, error)
	Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error
}

type service struct {
	repo campRepository
	logg *logger.Logger
}

// NewService wires the camp service.
func NewService(repo campRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("camp repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// List returns camps with member counts. Camp-scoped callers see only
// their own camp; callers with no scope get an empty result.
func (s *service) List(ctx context.Context, caller authz.Caller) ([]CampDTO, error) {
	scope := authz.ReadScope(caller)
	if scope == authz.ScopeNone {
		return []CampDTO{}, nil
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list camps")
	}
	out := make([]CampDTO, 0, len(rows))
	for _, row := range rows {
		if scope != authz.ScopeAll && (caller.CampID == nil || *caller.CampID != row.Camp.ID) {
			continue
		}
		out = append(out, *FromRow(row))
	}
	return out, nil
}

func (s *service) GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*CampDTO, error) {
	camp, err := s.loadScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountMembers(ctx, camp.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count camp members")
	}
	return FromModel(camp, count), nil
}

func (s *service) Create(ctx context.Context, caller authz.Caller, input CreateCampInput) (*CampDTO, error) {
	if authz.ReadScope(caller) != authz.ScopeAll {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can create camps")
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "camp name is required")
	}
	camp := input.ToModel()
	if err := s.repo.Create(ctx, camp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create camp")
	}
	s.logg.Info(s.logg.WithField(ctx, "camp_id", camp.ID.String()), "camp created")
	return FromModel(camp, 0), nil
}

func (s *service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateCampInput) (*CampDTO, error) {
	if authz.ReadScope(caller) != authz.ScopeAll {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can update camps")
	}
	camp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "camp not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load camp")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "camp name cannot be empty")
		}
		camp.Name = name
	}
	if input.Location != nil {
		camp.Location = input.Location
	}
	if input.LeaderAccountID != nil {
		camp.LeaderAccountID = *input.LeaderAccountID
	}
	if err := s.repo.Update(ctx, camp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update camp")
	}
	count, err := s.repo.CountMembers(ctx, camp.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count camp members")
	}
	return FromModel(camp, count), nil
}

// Delete removes an empty camp. A camp still holding members is declined
// so member rows never end up pointing at a missing camp.
func (s *service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	if authz.ReadScope(caller) != authz.ScopeAll {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can delete camps")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "camp not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load camp")
	}
	count, err := s.repo.CountMembers(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count camp members")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "camp still has members assigned to it")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete camp")
	}
	s.logg.Info(s.logg.WithField(ctx, "camp_id", id.String()), "camp deleted")
	return nil
}

func (s *service) loadScoped(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Camp, error) {
	scope := authz.ReadScope(caller)
	if scope == authz.ScopeNone {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "camp not found")
	}
	if scope != authz.ScopeAll && (caller.CampID == nil || *caller.CampID != id) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "camp not found")
	}
	camp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "camp not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load camp")
	}
	return camp, nil
}
