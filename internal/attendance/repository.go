package attendance

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
)

// Repository handles attendance persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to attendance operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// upsertConflict is the ON CONFLICT clause for the (member_id, event_id)
// unique index. Marking twice updates the existing row in place, so there is
// never a window where two rows exist for one member and event.
var upsertConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "member_id"}, {Name: "event_id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"status", "notes", "marked_by_account_id", "updated_at",
	}),
}

// UpsertBatch writes a set of attendance marks in one statement.
func (r *Repository) UpsertBatch(ctx context.Context, records []models.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(upsertConflict).Create(&records).Error
}

// ListByEvent returns every attendance row for the event.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Attendance, error) {
	var rows []models.Attendance
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&rows).Error
	return rows, err
}
