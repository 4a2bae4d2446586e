package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
)

// Repository handles event persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to event operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows event listings. A nil CampID means no camp filter;
// IncludeGlobal widens a camp filter to rows with no camp.
type ListFilter struct {
	CampID        *uuid.UUID
	IncludeGlobal bool
	From          *time.Time
	To            *time.Time
}

// Create persists a new event row.
func (r *Repository) Create(ctx context.Context, event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// FindByID loads an event by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events ordered by date descending.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})
	if filter.CampID != nil {
		if filter.IncludeGlobal {
			query = query.Where("camp_id = ? OR camp_id IS NULL", *filter.CampID)
		} else {
			query = query.Where("camp_id = ?", *filter.CampID)
		}
	}
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}

	var rows []models.Event
	err := query.Order("date DESC, id DESC").Find(&rows).Error
	return rows, err
}

// Update saves the provided event.
func (r *Repository) Update(ctx context.Context, event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	return r.db.WithContext(ctx).Save(event).Error
}

// Delete removes the event row and any attendance marked against it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Event{}).Error
	})
}
