package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// Attendance records one member's status for one event. The (member_id,
// event_id) pair is unique; writers must upsert on that key.
type Attendance struct {
	ID                uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID          uuid.UUID              `gorm:"column:member_id;type:uuid;not null;uniqueIndex:ux_attendance_member_event"`
	EventID           uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex:ux_attendance_member_event"`
	Status            enums.AttendanceStatus `gorm:"column:status;type:attendance_status;not null"`
	Notes             *string                `gorm:"column:notes"`
	MarkedByAccountID *uuid.UUID             `gorm:"column:marked_by_account_id;type:uuid"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
