package assignments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/internal/members"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

type assignmentRepository interface {
	CreateBatch(ctx context.Context, rows []models.Assignment) error
	ExistingMemberIDs(ctx context.Context, shepherdAccountID uuid.UUID, memberIDs []uuid.UUID) ([]uuid.UUID, error)
	Delete(ctx context.Context, shepherdAccountID, memberID uuid.UUID) (int64, error)
	ListMembers(ctx context.Context, shepherdAccountID uuid.UUID) ([]models.Member, error)
	List(ctx context.Context, campID *uuid.UUID) ([]models.Assignment, error)
}

type accountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type memberFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Member, error)
}

// AssignDecline names why one member could not be assigned.
type AssignDecline struct {
	MemberID uuid.UUID `json:"member_id"`
	Reason   string    `json:"reason"`
}

// AssignResult reports what an assign call did. Skipped members were
// already bound to the shepherd; skipping keeps the call idempotent.
type AssignResult struct {
	ShepherdAccountID uuid.UUID       `json:"shepherd_account_id"`
	Assigned          []uuid.UUID     `json:"assigned"`
	Skipped           []uuid.UUID     `json:"skipped"`
	Declined          []AssignDecline `json:"declined"`
}

// AssignmentDTO is the API shape for one assignment row.
type AssignmentDTO struct {
	ID                uuid.UUID `json:"id"`
	MemberID          uuid.UUID `json:"member_id"`
	ShepherdAccountID uuid.UUID `json:"shepherd_account_id"`
}

// Service exposes shepherd-assignment management.
type Service interface {
	Assign(ctx context.Context, caller authz.Caller, shepherdAccountID uuid.UUID, memberIDs []uuid.UUID) (*AssignResult, error)
	Unassign(ctx context.Context, caller authz.Caller, shepherdAccountID, memberID uuid.UUID) error
	ListShepherdMembers(ctx context.Context, caller authz.Caller, shepherdAccountID uuid.UUID) ([]members.MemberDTO, error)
	List(ctx context.Context, caller authz.Caller) ([]AssignmentDTO, error)
}

type service struct {
	repo       assignmentRepository
	accounts   accountFinder
	memberRepo memberFinder
	logg       *logger.Logger
}

// NewService wires the assignment service.
func NewService(repo assignmentRepository, accounts accountFinder, memberRepo memberFinder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignment repository is required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account finder is required")
	}
	if memberRepo == nil {
		return nil, fmt.Errorf("member finder is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, accounts: accounts, memberRepo: memberRepo, logg: logg}, nil
}

// Assign binds members to a shepherd account. Pairs that already exist are
// skipped, so retrying a partially applied request never duplicates rows.
func (s *service) Assign(ctx context.Context, caller authz.Caller, shepherdAccountID uuid.UUID, memberIDs []uuid.UUID) (*AssignResult, error) {
	if len(memberIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no members provided")
	}
	shepherd, err := s.loadShepherd(ctx, caller, shepherdAccountID)
	if err != nil {
		return nil, err
	}

	found, err := s.memberRepo.FindByIDs(ctx, memberIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load members")
	}
	memberByID := make(map[uuid.UUID]*models.Member, len(found))
	for i := range found {
		memberByID[found[i].ID] = &found[i]
	}

	existing, err := s.repo.ExistingMemberIDs(ctx, shepherdAccountID, memberIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check existing assignments")
	}
	already := make(map[uuid.UUID]bool, len(existing))
	for _, id := range existing {
		already[id] = true
	}

	result := &AssignResult{
		ShepherdAccountID: shepherdAccountID,
		Assigned:          []uuid.UUID{},
		Skipped:           []uuid.UUID{},
		Declined:          []AssignDecline{},
	}
	rows := make([]models.Assignment, 0, len(memberIDs))
	seen := make(map[uuid.UUID]bool, len(memberIDs))

	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		member, ok := memberByID[id]
		if !ok {
			result.Declined = append(result.Declined, AssignDecline{MemberID: id, Reason: "member not found"})
			continue
		}
		if reason := memberAssignDecline(shepherd, member); reason != "" {
			result.Declined = append(result.Declined, AssignDecline{MemberID: id, Reason: reason})
			continue
		}
		if already[id] {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		rows = append(rows, models.Assignment{MemberID: id, ShepherdAccountID: shepherdAccountID})
		result.Assigned = append(result.Assigned, id)
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create assignments")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"shepherd_account_id": shepherdAccountID.String(),
		"assigned":            len(result.Assigned),
		"skipped":             len(result.Skipped),
	})
	s.logg.Info(ctx, "members assigned")
	return result, nil
}

func (s *service) Unassign(ctx context.Context, caller authz.Caller, shepherdAccountID, memberID uuid.UUID) error {
	if _, err := s.loadShepherd(ctx, caller, shepherdAccountID); err != nil {
		return err
	}
	removed, err := s.repo.Delete(ctx, shepherdAccountID, memberID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove assignment")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	return nil
}

// ListShepherdMembers returns the distinct members assigned to the shepherd.
// Shepherds may list their own set; leaders and admins any in-scope shepherd.
func (s *service) ListShepherdMembers(ctx context.Context, caller authz.Caller, shepherdAccountID uuid.UUID) ([]members.MemberDTO, error) {
	if caller.AccountID != shepherdAccountID {
		if _, err := s.loadShepherd(ctx, caller, shepherdAccountID); err != nil {
			return nil, err
		}
	}
	rows, err := s.repo.ListMembers(ctx, shepherdAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list assigned members")
	}
	out := make([]members.MemberDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *members.FromModel(&rows[i]))
	}
	return out, nil
}

// List returns assignment rows visible to the caller.
func (s *service) List(ctx context.Context, caller authz.Caller) ([]AssignmentDTO, error) {
	var campID *uuid.UUID
	switch authz.ReadScope(caller) {
	case authz.ScopeAll:
	case authz.ScopeCamp:
		campID = caller.CampID
	default:
		return []AssignmentDTO{}, nil
	}
	rows, err := s.repo.List(ctx, campID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list assignments")
	}
	out := make([]AssignmentDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, AssignmentDTO{ID: row.ID, MemberID: row.MemberID, ShepherdAccountID: row.ShepherdAccountID})
	}
	return out, nil
}

// loadShepherd resolves the target account and checks the caller may manage
// its assignments.
func (s *service) loadShepherd(ctx context.Context, caller authz.Caller, shepherdAccountID uuid.UUID) (*models.Account, error) {
	scope := authz.WriteScope(caller)
	if scope == authz.ScopeNone {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot manage assignments")
	}
	account, err := s.accounts.FindByID(ctx, shepherdAccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shepherd account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load shepherd account")
	}
	if account.Role != enums.AccountRoleShepherd {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account is not a shepherd")
	}
	if scope == authz.ScopeCamp {
		if account.CampID == nil || caller.CampID == nil || *account.CampID != *caller.CampID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shepherd account not found")
		}
	}
	return account, nil
}

// memberAssignDecline checks that the member can be shepherded by the
// target account.
func memberAssignDecline(shepherd *models.Account, member *models.Member) string {
	if member.Status == enums.MemberStatusArchived {
		return "member is archived"
	}
	if shepherd.CampID != nil {
		if member.CampID == nil || *member.CampID != *shepherd.CampID {
			return "member is outside the shepherd's camp"
		}
	}
	return ""
}
