package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is a pastoral member-to-shepherd responsibility edge. The table
// does not enforce uniqueness on the pair; assign logic skips existing pairs
// and readers tolerate duplicates.
type Assignment struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID          uuid.UUID `gorm:"column:member_id;type:uuid;not null;index"`
	ShepherdAccountID uuid.UUID `gorm:"column:shepherd_account_id;type:uuid;not null;index"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}
