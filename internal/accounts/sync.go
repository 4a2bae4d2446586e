package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/identity"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/payloads"
	"github.com/osei-labs/flocktrack-backend/pkg/security"
)

type syncRepository interface {
	FindByMemberTx(tx *gorm.DB, memberID uuid.UUID) (*models.Account, error)
	FindByEmailTx(tx *gorm.DB, email string) (*models.Account, error)
	CreateTx(tx *gorm.DB, account *models.Account) error
	SaveTx(tx *gorm.DB, account *models.Account) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Snapshot captures the member fields the sync rules compare against.
type Snapshot struct {
	Role   enums.MemberRole
	Status enums.MemberStatus
}

// SyncOutcome reports what the sync pass did, for logging and responses.
type SyncOutcome struct {
	AccountCreated bool
	AccountUpdated bool
	AccountDeleted bool
	Suspended      bool
	Unsuspended    bool
	// TempPassword is set only when a new account was created; the caller
	// surfaces it to the operator exactly once.
	TempPassword string
}

// SyncService keeps account rows mirrored to member role and status.
// All database writes happen inside the member transaction; identity-provider
// effects are queued on the outbox so a vendor outage can never roll back or
// block the member write.
type SyncService interface {
	SyncOnWrite(ctx context.Context, tx *gorm.DB, member *models.Member, prev *Snapshot, actor *outbox.ActorRef) (*SyncOutcome, error)
}

type syncService struct {
	repo        syncRepository
	outbox      outboxEmitter
	passwordCfg config.PasswordConfig
	namespace   uuid.UUID
	logg        *logger.Logger
}

// NewSyncService builds the account sync service.
func NewSyncService(repo syncRepository, emitter outboxEmitter, passwordCfg config.PasswordConfig, identityCfg config.IdentityConfig, logg *logger.Logger) (SyncService, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &syncService{
		repo:        repo,
		outbox:      emitter,
		passwordCfg: passwordCfg,
		namespace:   identity.Namespace(identityCfg.Namespace),
		logg:        logg,
	}, nil
}

// SyncOnWrite applies the role and status rules after a member create or
// update. prev is nil on create. Both rules may fire from one call: a member
// can be promoted and archived in the same update.
func (s *syncService) SyncOnWrite(ctx context.Context, tx *gorm.DB, member *models.Member, prev *Snapshot, actor *outbox.ActorRef) (*SyncOutcome, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if member == nil {
		return nil, fmt.Errorf("member is required")
	}

	outcome := &SyncOutcome{}

	roleChanged := prev == nil || prev.Role != member.Role
	statusChanged := prev != nil && prev.Status != member.Status

	account, err := s.repo.FindByMemberTx(tx, member.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bound account")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = nil
	}

	if roleChanged {
		if accountRole, grants := enums.AccountRoleForMember(member.Role); grants {
			account, err = s.ensureAccount(ctx, tx, member, account, accountRole, outcome, actor)
			if err != nil {
				return nil, err
			}
		} else if account != nil {
			// Demotion silently revokes access: the account row and the
			// provider record both go away. Re-promotion creates a fresh
			// binding with a new temp password.
			if err := s.deleteAccount(ctx, tx, member, account, outcome, actor); err != nil {
				return nil, err
			}
			account = nil
		}
	} else if account != nil {
		// Role unchanged but camp may have moved; keep the mirror exact.
		if accountRole, grants := enums.AccountRoleForMember(member.Role); grants {
			if account.Role != accountRole || !uuidPtrEqual(account.CampID, member.CampID) {
				account.Role = accountRole
				account.CampID = cloneUUIDPtr(member.CampID)
				if err := s.repo.SaveTx(tx, account); err != nil {
					return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account mirror")
				}
				outcome.AccountUpdated = true
				if err := s.emitUpserted(ctx, tx, account, actor); err != nil {
					return nil, err
				}
			}
		}
	}

	if statusChanged && account != nil {
		archivedNow := member.Status == enums.MemberStatusArchived
		archivedBefore := prev.Status == enums.MemberStatusArchived
		switch {
		case archivedNow && !archivedBefore:
			account.Suspended = true
			if err := s.repo.SaveTx(tx, account); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "suspend account")
			}
			outcome.Suspended = true
			if err := s.emitSuspension(ctx, tx, account, true, actor); err != nil {
				return nil, err
			}
		case archivedBefore && !archivedNow:
			account.Suspended = false
			if err := s.repo.SaveTx(tx, account); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unsuspend account")
			}
			outcome.Unsuspended = true
			if err := s.emitSuspension(ctx, tx, account, false, actor); err != nil {
				return nil, err
			}
		}
	}

	return outcome, nil
}

func (s *syncService) ensureAccount(ctx context.Context, tx *gorm.DB, member *models.Member, bound *models.Account, role enums.AccountRole, outcome *SyncOutcome, actor *outbox.ActorRef) (*models.Account, error) {
	if member.Email == nil || normalizeEmail(*member.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member email required to grant access")
	}
	email := normalizeEmail(*member.Email)

	account := bound
	if account == nil {
		existing, err := s.repo.FindByEmailTx(tx, email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup account by email")
		}
		if existing != nil && err == nil {
			account = existing
		}
	}

	if account == nil {
		tempPassword, err := security.GenerateTempPassword(16)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
		}
		hash, err := security.HashPassword(tempPassword, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		account = &models.Account{
			Email:        email,
			PasswordHash: hash,
			MemberID:     &member.ID,
			Role:         role,
			CampID:       cloneUUIDPtr(member.CampID),
			AuthID:       identity.DeterministicAuthID(s.namespace, email),
			Suspended:    member.Status == enums.MemberStatusArchived,
		}
		if err := s.repo.CreateTx(tx, account); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
		}
		outcome.AccountCreated = true
		outcome.TempPassword = tempPassword
	} else {
		account.MemberID = &member.ID
		account.Role = role
		account.CampID = cloneUUIDPtr(member.CampID)
		if err := s.repo.SaveTx(tx, account); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rebind account")
		}
		outcome.AccountUpdated = true
	}

	if err := s.emitUpserted(ctx, tx, account, actor); err != nil {
		return nil, err
	}

	s.log(ctx, "account granted", account.ID, member.ID)
	return account, nil
}

func (s *syncService) deleteAccount(ctx context.Context, tx *gorm.DB, member *models.Member, account *models.Account, outcome *SyncOutcome, actor *outbox.ActorRef) error {
	if err := s.repo.DeleteTx(tx, account.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete account")
	}
	outcome.AccountDeleted = true

	event := outbox.DomainEvent{
		EventType:     enums.EventAccountDeleted,
		AggregateType: enums.AggregateAccount,
		AggregateID:   account.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.AccountDeletedEvent{
			AccountID: account.ID,
			AuthID:    account.AuthID,
			Email:     account.Email,
			DeletedAt: time.Now().UTC(),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue account deletion")
	}

	s.log(ctx, "account revoked", account.ID, member.ID)
	return nil
}

func (s *syncService) emitUpserted(ctx context.Context, tx *gorm.DB, account *models.Account, actor *outbox.ActorRef) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventAccountUpserted,
		AggregateType: enums.AggregateAccount,
		AggregateID:   account.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.AccountUpsertedEvent{
			AccountID: account.ID,
			AuthID:    account.AuthID,
			Email:     account.Email,
			Role:      account.Role,
			MemberID:  account.MemberID,
			CampID:    account.CampID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue account upsert")
	}
	return nil
}

func (s *syncService) emitSuspension(ctx context.Context, tx *gorm.DB, account *models.Account, suspended bool, actor *outbox.ActorRef) error {
	eventType := enums.EventAccountSuspended
	if !suspended {
		eventType = enums.EventAccountUnsuspended
	}
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateAccount,
		AggregateID:   account.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.AccountSuspensionEvent{
			AccountID: account.ID,
			AuthID:    account.AuthID,
			Suspended: suspended,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue account suspension")
	}
	return nil
}

func (s *syncService) log(ctx context.Context, msg string, accountID, memberID uuid.UUID) {
	if s.logg == nil {
		return
	}
	fields := map[string]any{
		"account_id": accountID.String(),
		"member_id":  memberID.String(),
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cloneUUIDPtr(value *uuid.UUID) *uuid.UUID {
	if value == nil {
		return nil
	}
	cpy := *value
	return &cpy
}
