package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/accounts"
	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/pagination"
	"github.com/osei-labs/flocktrack-backend/pkg/security"
)

// updateTokenTTL bounds self-service profile edits.
const updateTokenTTL = 48 * time.Hour

type memberRepository interface {
	List(ctx context.Context, filter ListFilter) ([]MemberRow, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindByUpdateToken(ctx context.Context, token string) (*models.Member, error)
	CreateTx(tx *gorm.DB, member *models.Member) error
	SaveTx(tx *gorm.DB, member *models.Member) error
	Save(ctx context.Context, member *models.Member) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	SetUpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ListParams carries listing inputs from the controller.
type ListParams struct {
	Status   *enums.MemberStatus
	Category *enums.MemberCategory
	Search   string
	Page     pagination.Params
}

// ListResult pairs one page of members with its continuation cursor.
type ListResult struct {
	Members    []*MemberDTO
	NextCursor string
}

// WriteResult reports a create/update alongside any account-sync side effects.
type WriteResult struct {
	Member *MemberDTO
	Sync   *accounts.SyncOutcome
}

// Service exposes member operations, all scoped by the caller.
type Service interface {
	List(ctx context.Context, caller authz.Caller, params ListParams) (*ListResult, error)
	GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*MemberDTO, error)
	Create(ctx context.Context, caller authz.Caller, input CreateMemberInput) (*WriteResult, error)
	Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateMemberInput) (*WriteResult, error)
	BulkDelete(ctx context.Context, caller authz.Caller, ids []uuid.UUID) (int64, error)
	IssueUpdateToken(ctx context.Context, caller authz.Caller, id uuid.UUID) (string, time.Time, error)
	UpdateWithToken(ctx context.Context, token string, input SelfUpdateInput) (*MemberDTO, error)
}

type service struct {
	repo memberRepository
	sync accounts.SyncService
	tx   txRunner
}

// NewService builds the member service.
func NewService(repo memberRepository, sync accounts.SyncService, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("member repository required")
	}
	if sync == nil {
		return nil, fmt.Errorf("account sync service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, sync: sync, tx: tx}, nil
}

func (s *service) List(ctx context.Context, caller authz.Caller, params ListParams) (*ListResult, error) {
	filter := ListFilter{
		Status:   params.Status,
		Category: params.Category,
		Search:   params.Search,
		Limit:    pagination.LimitWithBuffer(params.Page.Limit),
	}

	switch authz.ReadScope(caller) {
	case authz.ScopeAll:
		// unscoped
	case authz.ScopeCamp:
		filter.CampID = caller.CampID
	default:
		return &ListResult{Members: []*MemberDTO{}}, nil
	}

	cursor, err := pagination.ParseCursor(params.Page.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}

	limit := pagination.NormalizeLimit(params.Page.Limit)
	result := &ListResult{Members: make([]*MemberDTO, 0, len(rows))}
	for i, row := range rows {
		if i == limit {
			last := rows[i-1]
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		result.Members = append(result.Members, FromRow(row))
	}
	return result, nil
}

func (s *service) GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*MemberDTO, error) {
	member, err := s.loadScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return FromModel(member), nil
}

func (s *service) Create(ctx context.Context, caller authz.Caller, input CreateMemberInput) (*WriteResult, error) {
	if !authz.CanManageMembers(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller may not manage members")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}
	if input.Role != "" && !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if authz.WriteScope(caller) == authz.ScopeCamp {
		// Camp-scoped writers create members only inside their own camp.
		input.CampID = caller.CampID
	}

	member := input.ToModel()
	var sync *accounts.SyncOutcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, member); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create member")
		}
		outcome, err := s.sync.SyncOnWrite(ctx, tx, member, nil, actorRef(caller))
		if err != nil {
			return err
		}
		sync = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &WriteResult{Member: FromModel(member), Sync: sync}, nil
}

func (s *service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateMemberInput) (*WriteResult, error) {
	if !authz.CanManageMembers(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller may not manage members")
	}

	member, err := s.loadScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	prev := accounts.Snapshot{Role: member.Role, Status: member.Status}
	if err := applyUpdate(member, input, caller); err != nil {
		return nil, err
	}

	var sync *accounts.SyncOutcome
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.SaveTx(tx, member); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update member")
		}
		outcome, err := s.sync.SyncOnWrite(ctx, tx, member, &prev, actorRef(caller))
		if err != nil {
			return err
		}
		sync = outcome
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &WriteResult{Member: FromModel(member), Sync: sync}, nil
}

func (s *service) BulkDelete(ctx context.Context, caller authz.Caller, ids []uuid.UUID) (int64, error) {
	if !authz.CanManageMembers(caller) {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "caller may not manage members")
	}
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one member id is required")
	}

	// Camp-scoped callers may only delete members they can see.
	if authz.WriteScope(caller) == authz.ScopeCamp {
		for _, id := range ids {
			if _, err := s.loadScoped(ctx, caller, id); err != nil {
				return 0, err
			}
		}
	}

	deleted, err := s.repo.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete members")
	}
	return deleted, nil
}

func (s *service) IssueUpdateToken(ctx context.Context, caller authz.Caller, id uuid.UUID) (string, time.Time, error) {
	if !authz.CanManageMembers(caller) {
		return "", time.Time{}, pkgerrors.New(pkgerrors.CodeForbidden, "caller may not manage members")
	}
	member, err := s.loadScoped(ctx, caller, id)
	if err != nil {
		return "", time.Time{}, err
	}

	token, err := security.GenerateUpdateToken()
	if err != nil {
		return "", time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate update token")
	}
	expiresAt := time.Now().Add(updateTokenTTL).UTC()
	if err := s.repo.SetUpdateToken(ctx, member.ID, token, expiresAt); err != nil {
		return "", time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store update token")
	}
	return token, expiresAt, nil
}

func (s *service) UpdateWithToken(ctx context.Context, token string, input SelfUpdateInput) (*MemberDTO, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "update token is required")
	}

	member, err := s.repo.FindByUpdateToken(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired update token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup update token")
	}
	if member.UpdateTokenExpiresAt == nil || time.Now().After(*member.UpdateTokenExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired update token")
	}

	if input.Phone != nil {
		member.Phone = cloneStringPtr(input.Phone)
	}
	if input.Birthday != nil {
		bday := *input.Birthday
		member.Birthday = &bday
	}
	if input.Residence != nil {
		member.Residence = cloneStringPtr(input.Residence)
	}
	if input.Region != nil {
		member.Region = cloneStringPtr(input.Region)
	}
	if input.GuardianName != nil {
		member.GuardianName = cloneStringPtr(input.GuardianName)
	}
	if input.GuardianPhone != nil {
		member.GuardianPhone = cloneStringPtr(input.GuardianPhone)
	}
	if input.PictureURL != nil {
		member.PictureURL = cloneStringPtr(input.PictureURL)
	}

	// Single use: the token dies with the successful write.
	member.UpdateToken = nil
	member.UpdateTokenExpiresAt = nil
	if err := s.repo.Save(ctx, member); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply self-service update")
	}
	return FromModel(member), nil
}

// loadScoped fetches a member the caller is allowed to see. Out-of-scope rows
// surface as not found so callers cannot probe for existence.
func (s *service) loadScoped(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Member, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member")
	}

	switch authz.ReadScope(caller) {
	case authz.ScopeAll:
		return member, nil
	case authz.ScopeCamp:
		if member.CampID != nil && caller.CampID != nil && *member.CampID == *caller.CampID {
			return member, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
}

func applyUpdate(member *models.Member, input UpdateMemberInput, caller authz.Caller) error {
	if input.FirstName != nil {
		member.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		member.LastName = *input.LastName
	}
	if input.Email != nil {
		member.Email = cloneStringPtr(input.Email)
	}
	if input.Phone != nil {
		member.Phone = cloneStringPtr(input.Phone)
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		member.Role = *input.Role
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		member.Status = *input.Status
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		member.Category = *input.Category
	}
	if input.CampID != nil {
		if authz.WriteScope(caller) == authz.ScopeCamp {
			return pkgerrors.New(pkgerrors.CodeForbidden, "camp reassignment requires admin")
		}
		member.CampID = cloneUUIDPtr(*input.CampID)
	}
	if input.Birthday != nil {
		bday := *input.Birthday
		member.Birthday = &bday
	}
	if input.Residence != nil {
		member.Residence = cloneStringPtr(input.Residence)
	}
	if input.Region != nil {
		member.Region = cloneStringPtr(input.Region)
	}
	if input.GuardianName != nil {
		member.GuardianName = cloneStringPtr(input.GuardianName)
	}
	if input.GuardianPhone != nil {
		member.GuardianPhone = cloneStringPtr(input.GuardianPhone)
	}
	if input.PictureURL != nil {
		member.PictureURL = cloneStringPtr(input.PictureURL)
	}
	if input.Tags != nil {
		member.Tags = make(pq.StringArray, len(*input.Tags))
		copy(member.Tags, *input.Tags)
	}
	return nil
}

func actorRef(caller authz.Caller) *outbox.ActorRef {
	if caller.AccountID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		AccountID: caller.AccountID,
		CampID:    caller.CampID,
		Role:      string(caller.Role),
	}
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cpy := *value
	return &cpy
}

func cloneUUIDPtr(value *uuid.UUID) *uuid.UUID {
	if value == nil {
		return nil
	}
	cpy := *value
	return &cpy
}
