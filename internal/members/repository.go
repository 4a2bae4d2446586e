package members

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	"github.com/osei-labs/flocktrack-backend/pkg/pagination"
)

// ListFilter narrows member listings. A nil CampID leaves camp unfiltered;
// services pass the caller's camp for scoped roles.
type ListFilter struct {
	CampID   *uuid.UUID
	Status   *enums.MemberStatus
	Category *enums.MemberCategory
	Search   string
	Cursor   *pagination.Cursor
	Limit    int
}

// Repository handles member persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to member operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns members newest-first joined with their camp name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]MemberRow, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Select("members.*, camps.name AS camp_name").
		Joins("LEFT JOIN camps ON camps.id = members.camp_id").
		Order("members.created_at DESC").
		Order("members.id DESC")

	if filter.CampID != nil {
		qb = qb.Where("members.camp_id = ?", *filter.CampID)
	}
	if filter.Status != nil {
		qb = qb.Where("members.status = ?", *filter.Status)
	}
	if filter.Category != nil {
		qb = qb.Where("members.category = ?", *filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"LOWER(members.first_name) LIKE ? OR LOWER(members.last_name) LIKE ? OR LOWER(COALESCE(members.email, '')) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.Cursor != nil {
		qb = qb.Where(
			"(members.created_at, members.id) < (?, ?)",
			filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}
	if filter.Limit > 0 {
		qb = qb.Limit(filter.Limit)
	}

	var rows []MemberRow
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a member by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByUpdateToken loads the member holding the given self-service token.
func (r *Repository) FindByUpdateToken(ctx context.Context, token string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).
		Where("update_token = ?", token).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// CreateTx persists a new member inside the transaction.
func (r *Repository) CreateTx(tx *gorm.DB, member *models.Member) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if member == nil {
		return fmt.Errorf("member is required")
	}
	return tx.Create(member).Error
}

// SaveTx persists member changes inside the transaction.
func (r *Repository) SaveTx(tx *gorm.DB, member *models.Member) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if member == nil {
		return fmt.Errorf("member is required")
	}
	return tx.Save(member).Error
}

// Save persists member changes outside a caller transaction.
func (r *Repository) Save(ctx context.Context, member *models.Member) error {
	if member == nil {
		return fmt.Errorf("member is required")
	}
	return r.db.WithContext(ctx).Save(member).Error
}

// DeleteByIDs removes exactly the rows matching ids and reports how many went.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Member{})
	return result.RowsAffected, result.Error
}

// SetUpdateToken stores a fresh self-service token and expiry.
func (r *Repository) SetUpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"update_token":            token,
			"update_token_expires_at": expiresAt,
		}).Error
}

// ClearExpiredUpdateTokens nulls out self-service tokens past their expiry.
func (r *Repository) ClearExpiredUpdateTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Member{}).
		Where("update_token IS NOT NULL").
		Where("update_token_expires_at < ?", cutoff).
		Updates(map[string]any{
			"update_token":            nil,
			"update_token_expires_at": nil,
		})
	return result.RowsAffected, result.Error
}

// ListActiveByCamp returns every active member of the camp, alphabetical
// by last name. Attendance rosters build on this.
func (r *Repository) ListActiveByCamp(ctx context.Context, campID uuid.UUID) ([]models.Member, error) {
	var rows []models.Member
	err := r.db.WithContext(ctx).
		Where("camp_id = ?", campID).
		Where("status = ?", enums.MemberStatusActive).
		Order("last_name ASC, first_name ASC").
		Find(&rows).Error
	return rows, err
}

// FindByIDs loads the given members in one query.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Member
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// ListBirthdaysBetween returns active members whose birthday (month/day)
// falls inside the window.
func (r *Repository) ListBirthdaysBetween(ctx context.Context, campID *uuid.UUID, from, to time.Time) ([]models.Member, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("birthday IS NOT NULL").
		Where("status = ?", enums.MemberStatusActive)
	if campID != nil {
		qb = qb.Where("camp_id = ?", *campID)
	}

	var rows []models.Member
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, m := range rows {
		if m.Birthday != nil && birthdayInWindow(*m.Birthday, from, to) {
			out = append(out, m)
		}
	}
	return out, nil
}

// birthdayInWindow compares month/day only, handling windows that cross a
// year boundary.
func birthdayInWindow(birthday, from, to time.Time) bool {
	key := func(t time.Time) int { return int(t.Month())*100 + t.Day() }
	b, f, u := key(birthday), key(from), key(to)
	if f <= u {
		return b >= f && b <= u
	}
	return b >= f || b <= u
}
