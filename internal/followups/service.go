package followups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

type followUpRepository interface {
	Create(ctx context.Context, entry *models.FollowUp) error
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]models.FollowUp, error)
	ListDueCallbacks(ctx context.Context, campID *uuid.UUID, by time.Time) ([]models.FollowUp, error)
}

type memberFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
}

// LogInput carries one contact-attempt record.
type LogInput struct {
	Type          string     `json:"type" validate:"required"`
	Outcome       string     `json:"outcome" validate:"required"`
	Notes         string     `json:"notes" validate:"max=1000"`
	NextContactAt *time.Time `json:"next_contact_at"`
}

// FollowUpDTO is the API shape for one follow-up entry.
type FollowUpDTO struct {
	ID                uuid.UUID             `json:"id"`
	MemberID          uuid.UUID             `json:"member_id"`
	Type              enums.FollowUpType    `json:"type"`
	Outcome           enums.FollowUpOutcome `json:"outcome"`
	Notes             string                `json:"notes,omitempty"`
	NextContactAt     *time.Time            `json:"next_contact_at,omitempty"`
	LoggedByAccountID uuid.UUID             `json:"logged_by_account_id"`
	CreatedAt         time.Time             `json:"created_at"`
}

// Service exposes pastoral follow-up logging.
type Service interface {
	Log(ctx context.Context, caller authz.Caller, memberID uuid.UUID, input LogInput) (*FollowUpDTO, error)
	ListForMember(ctx context.Context, caller authz.Caller, memberID uuid.UUID) ([]FollowUpDTO, error)
	DueCallbacks(ctx context.Context, caller authz.Caller, by time.Time) ([]FollowUpDTO, error)
}

type service struct {
	repo    followUpRepository
	members memberFinder
	logg    *logger.Logger
}

// NewService wires the follow-up service.
func NewService(repo followUpRepository, members memberFinder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("follow-up repository is required")
	}
	if members == nil {
		return nil, fmt.Errorf("member finder is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, members: members, logg: logg}, nil
}

// Log records a contact attempt against a member the caller can see. The
// entry is always attributed to the calling account.
func (s *service) Log(ctx context.Context, caller authz.Caller, memberID uuid.UUID, input LogInput) (*FollowUpDTO, error) {
	if _, err := s.loadScoped(ctx, caller, memberID); err != nil {
		return nil, err
	}

	fuType, err := enums.ParseFollowUpType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	outcome, err := enums.ParseFollowUpOutcome(input.Outcome)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if outcome == enums.FollowUpOutcomeScheduledCallback && input.NextContactAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled callback requires a next contact time")
	}

	entry := &models.FollowUp{
		MemberID:          memberID,
		Type:              fuType,
		Outcome:           outcome,
		Notes:             strings.TrimSpace(input.Notes),
		NextContactAt:     input.NextContactAt,
		LoggedByAccountID: caller.AccountID,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to log follow-up")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"member_id":    memberID.String(),
		"follow_up_id": entry.ID.String(),
	})
	s.logg.Info(ctx, "follow-up logged")
	return fromModel(entry), nil
}

// ListForMember returns a member's follow-up history, newest first.
func (s *service) ListForMember(ctx context.Context, caller authz.Caller, memberID uuid.UUID) ([]FollowUpDTO, error) {
	if _, err := s.loadScoped(ctx, caller, memberID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list follow-ups")
	}
	return fromModels(rows), nil
}

// DueCallbacks returns scheduled callbacks whose contact time has passed,
// scoped to the caller's camp for non-admins.
func (s *service) DueCallbacks(ctx context.Context, caller authz.Caller, by time.Time) ([]FollowUpDTO, error) {
	var campID *uuid.UUID
	switch authz.ReadScope(caller) {
	case authz.ScopeAll:
	case authz.ScopeCamp:
		campID = caller.CampID
	default:
		return []FollowUpDTO{}, nil
	}
	if by.IsZero() {
		by = time.Now().UTC()
	}
	rows, err := s.repo.ListDueCallbacks(ctx, campID, by)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list due callbacks")
	}
	return fromModels(rows), nil
}

// loadScoped hides out-of-scope members behind not-found.
func (s *service) loadScoped(ctx context.Context, caller authz.Caller, memberID uuid.UUID) (*models.Member, error) {
	if authz.ReadScope(caller) == authz.ScopeNone {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load member")
	}
	if authz.ReadScope(caller) == authz.ScopeCamp {
		if member.CampID == nil || caller.CampID == nil || *member.CampID != *caller.CampID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
	}
	return member, nil
}

func fromModel(entry *models.FollowUp) *FollowUpDTO {
	if entry == nil {
		return nil
	}
	return &FollowUpDTO{
		ID:                entry.ID,
		MemberID:          entry.MemberID,
		Type:              entry.Type,
		Outcome:           entry.Outcome,
		Notes:             entry.Notes,
		NextContactAt:     entry.NextContactAt,
		LoggedByAccountID: entry.LoggedByAccountID,
		CreatedAt:         entry.CreatedAt,
	}
}

func fromModels(rows []models.FollowUp) []FollowUpDTO {
	out := make([]FollowUpDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out
}
