package camps

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
)

// Repository handles camp persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to camp operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CampCountRow pairs a camp with its member count for listings.
type CampCountRow struct {
	models.Camp
	MemberCount int64 `gorm:"column:member_count"`
}

// Create persists a new camp row.
func (r *Repository) Create(ctx context.Context, camp *models.Camp) error {
	if camp == nil {
		return fmt.Errorf("camp is required")
	}
	return r.db.WithContext(ctx).Create(camp).Error
}

// FindByID loads a camp by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Camp, error) {
	var camp models.Camp
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&camp).Error; err != nil {
		return nil, err
	}
	return &camp, nil
}

// List returns all camps with member counts, alphabetical.
func (r *Repository) List(ctx context.Context) ([]CampCountRow, error) {
	var rows []CampCountRow
	err := r.db.WithContext(ctx).
		Model(&models.Camp{}).
		Select("camps.*, COUNT(members.id) AS member_count").
		Joins("LEFT JOIN members ON members.camp_id = camps.id").
		Group("camps.id").
		Order("camps.name ASC").
		Find(&rows).Error
	return rows, err
}

// Update saves the provided camp.
func (r *Repository) Update(ctx context.Context, camp *models.Camp) error {
	if camp == nil {
		return fmt.Errorf("camp is required")
	}
	return r.db.WithContext(ctx).Save(camp).Error
}

// Delete removes the camp row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Camp{}).Error
}

// CountMembers reports how many members still reference the camp.
func (r *Repository) CountMembers(ctx context.Context, campID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("camp_id = ?", campID).
		Count(&count).Error
	return count, err
}
