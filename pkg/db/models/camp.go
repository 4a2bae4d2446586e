package models

import (
	"time"

	"github.com/google/uuid"
)

// Camp is a site/campus grouping of members.
type Camp struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string     `gorm:"column:name;not null;uniqueIndex"`
	Location        *string    `gorm:"column:location"`
	LeaderAccountID *uuid.UUID `gorm:"column:leader_account_id;type:uuid"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
