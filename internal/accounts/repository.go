package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
)

// Repository handles account persistence. Sync paths run inside the member
// transaction, so most methods take the caller's *gorm.DB.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to account operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads an account by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByEmail loads an account by its normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateLastLogin stamps a successful login.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// FindByMemberTx loads the account bound to a member inside the transaction.
func (r *Repository) FindByMemberTx(tx *gorm.DB, memberID uuid.UUID) (*models.Account, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var account models.Account
	if err := tx.Where("member_id = ?", memberID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByEmailTx loads an account by email inside the transaction.
func (r *Repository) FindByEmailTx(tx *gorm.DB, email string) (*models.Account, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var account models.Account
	if err := tx.Where("email = ?", normalizeEmail(email)).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// CreateTx persists a new account inside the transaction.
func (r *Repository) CreateTx(tx *gorm.DB, account *models.Account) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if account == nil {
		return fmt.Errorf("account is required")
	}
	account.Email = normalizeEmail(account.Email)
	return tx.Create(account).Error
}

// SaveTx persists account changes inside the transaction.
func (r *Repository) SaveTx(tx *gorm.DB, account *models.Account) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if account == nil {
		return fmt.Errorf("account is required")
	}
	return tx.Save(account).Error
}

// DeleteTx removes an account row inside the transaction.
func (r *Repository) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Where("id = ?", id).Delete(&models.Account{}).Error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
