package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// Event is a named occurrence members attend. A nil CampID marks a global
// (admin-created) event visible to every camp.
type Event struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string          `gorm:"column:name;not null"`
	Type               enums.EventType `gorm:"column:type;type:event_type;not null;default:service"`
	Date               time.Time       `gorm:"column:date;not null"`
	CampID             *uuid.UUID      `gorm:"column:camp_id;type:uuid"`
	Recurring          bool            `gorm:"column:recurring;not null;default:false"`
	MeetingURL         *string         `gorm:"column:meeting_url"`
	CreatedByAccountID *uuid.UUID      `gorm:"column:created_by_account_id;type:uuid"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
