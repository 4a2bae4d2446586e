package assignments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
)

// Repository handles shepherd-assignment persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to assignment operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBatch inserts the given assignment pairs.
func (r *Repository) CreateBatch(ctx context.Context, rows []models.Assignment) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ExistingMemberIDs returns which of the given members are already assigned
// to the shepherd. Duplicate rows collapse into one id.
func (r *Repository) ExistingMemberIDs(ctx context.Context, shepherdAccountID uuid.UUID, memberIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Distinct("member_id").
		Where("shepherd_account_id = ?", shepherdAccountID).
		Where("member_id IN ?", memberIDs).
		Pluck("member_id", &ids).Error
	return ids, err
}

// Delete removes every row binding the member to the shepherd and reports
// how many were removed.
func (r *Repository) Delete(ctx context.Context, shepherdAccountID, memberID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("shepherd_account_id = ? AND member_id = ?", shepherdAccountID, memberID).
		Delete(&models.Assignment{})
	return res.RowsAffected, res.Error
}

// AssignedMemberIDs returns the distinct member ids assigned to the shepherd.
func (r *Repository) AssignedMemberIDs(ctx context.Context, shepherdAccountID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Distinct("member_id").
		Where("shepherd_account_id = ?", shepherdAccountID).
		Pluck("member_id", &ids).Error
	return ids, err
}

// ListMembers returns the distinct members assigned to the shepherd.
func (r *Repository) ListMembers(ctx context.Context, shepherdAccountID uuid.UUID) ([]models.Member, error) {
	var rows []models.Member
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Distinct("members.*").
		Joins("JOIN assignments ON assignments.member_id = members.id").
		Where("assignments.shepherd_account_id = ?", shepherdAccountID).
		Order("members.last_name ASC, members.first_name ASC").
		Find(&rows).Error
	return rows, err
}

// List returns assignments, optionally restricted to members of one camp.
func (r *Repository) List(ctx context.Context, campID *uuid.UUID) ([]models.Assignment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})
	if campID != nil {
		query = query.
			Joins("JOIN members ON members.id = assignments.member_id").
			Where("members.camp_id = ?", *campID)
	}
	var rows []models.Assignment
	err := query.Order("assignments.created_at DESC").Find(&rows).Error
	return rows, err
}
