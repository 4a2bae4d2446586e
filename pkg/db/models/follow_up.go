package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// FollowUp is a logged pastoral contact attempt against a member.
type FollowUp struct {
	ID                uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID          uuid.UUID             `gorm:"column:member_id;type:uuid;not null;index"`
	Type              enums.FollowUpType    `gorm:"column:type;type:follow_up_type;not null"`
	Outcome           enums.FollowUpOutcome `gorm:"column:outcome;type:follow_up_outcome;not null"`
	Notes             string                `gorm:"column:notes"`
	NextContactAt     *time.Time            `gorm:"column:next_contact_at"`
	LoggedByAccountID uuid.UUID             `gorm:"column:logged_by_account_id;type:uuid;not null"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
}
