package followups

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// Repository handles follow-up persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to follow-up operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists one follow-up entry.
func (r *Repository) Create(ctx context.Context, entry *models.FollowUp) error {
	if entry == nil {
		return fmt.Errorf("follow-up entry is required")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByMember returns a member's follow-up history, newest first.
func (r *Repository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]models.FollowUp, error) {
	var rows []models.FollowUp
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListDueCallbacks returns scheduled callbacks whose contact time has
// arrived, optionally restricted to members of one camp.
func (r *Repository) ListDueCallbacks(ctx context.Context, campID *uuid.UUID, by time.Time) ([]models.FollowUp, error) {
	query := r.db.WithContext(ctx).
		Model(&models.FollowUp{}).
		Where("follow_ups.outcome = ?", enums.FollowUpOutcomeScheduledCallback).
		Where("follow_ups.next_contact_at IS NOT NULL AND follow_ups.next_contact_at <= ?", by)
	if campID != nil {
		query = query.
			Joins("JOIN members ON members.id = follow_ups.member_id").
			Where("members.camp_id = ?", *campID)
	}
	var rows []models.FollowUp
	err := query.Order("follow_ups.next_contact_at ASC").Find(&rows).Error
	return rows, err
}
