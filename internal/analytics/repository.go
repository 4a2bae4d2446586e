package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// Repository runs the aggregate queries behind the reporting endpoints.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to analytics queries.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// groupColumns whitelists the member columns counts may group by.
var groupColumns = map[string]bool{
	"role":     true,
	"status":   true,
	"category": true,
}

type groupCountRow struct {
	Key   string `gorm:"column:key"`
	Count int64  `gorm:"column:count"`
}

// CountMembersBy groups member counts by one of role, status, or category.
func (r *Repository) CountMembersBy(ctx context.Context, column string, campID *uuid.UUID) (map[string]int64, error) {
	if !groupColumns[column] {
		return nil, fmt.Errorf("unsupported group column %q", column)
	}
	query := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column)
	if campID != nil {
		query = query.Where("camp_id = ?", *campID)
	}

	var rows []groupCountRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

// EventAttendanceRow aggregates marks for one event.
type EventAttendanceRow struct {
	EventID uuid.UUID `gorm:"column:event_id"`
	Name    string    `gorm:"column:name"`
	Date    time.Time `gorm:"column:date"`
	Present int64     `gorm:"column:present"`
	Marked  int64     `gorm:"column:marked"`
}

// EventAttendance returns per-event present/marked counts for events in the
// window, optionally restricted to one camp's events.
func (r *Repository) EventAttendance(ctx context.Context, campID *uuid.UUID, from, to time.Time) ([]EventAttendanceRow, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Select(`events.id AS event_id, events.name, events.date,
			COUNT(attendances.id) FILTER (WHERE attendances.status = ?) AS present,
			COUNT(attendances.id) AS marked`, enums.AttendanceStatusPresent).
		Joins("LEFT JOIN attendances ON attendances.event_id = events.id").
		Where("events.date >= ? AND events.date <= ?", from, to).
		Group("events.id, events.name, events.date").
		Order("events.date ASC")
	if campID != nil {
		query = query.Where("events.camp_id = ? OR events.camp_id IS NULL", *campID)
	}

	var rows []EventAttendanceRow
	err := query.Find(&rows).Error
	return rows, err
}

// CountNewConverts counts new-convert members registered in the window.
func (r *Repository) CountNewConverts(ctx context.Context, campID *uuid.UUID, from, to time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("role = ?", enums.MemberRoleNewConvert).
		Where("created_at >= ? AND created_at <= ?", from, to)
	if campID != nil {
		query = query.Where("camp_id = ?", *campID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
