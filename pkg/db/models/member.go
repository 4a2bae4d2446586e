package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// Member is a person tracked by the ministry.
type Member struct {
	ID        uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName string               `gorm:"column:first_name;not null"`
	LastName  string               `gorm:"column:last_name;not null"`
	Email     *string              `gorm:"column:email"`
	Phone     *string              `gorm:"column:phone"`
	Role      enums.MemberRole     `gorm:"column:role;type:member_role;not null;default:member"`
	Status    enums.MemberStatus   `gorm:"column:status;type:member_status;not null;default:active"`
	Category  enums.MemberCategory `gorm:"column:category;type:member_category;not null;default:student"`
	CampID    *uuid.UUID           `gorm:"column:camp_id;type:uuid"`

	Birthday      *time.Time     `gorm:"column:birthday"`
	Residence     *string        `gorm:"column:residence"`
	Region        *string        `gorm:"column:region"`
	GuardianName  *string        `gorm:"column:guardian_name"`
	GuardianPhone *string        `gorm:"column:guardian_phone"`
	PictureURL    *string        `gorm:"column:picture_url"`
	Tags          pq.StringArray `gorm:"type:text[];column:tags"`

	// UpdateToken is a single-use credential for self-service profile edits.
	// It is cleared on successful use and ignored past its expiry.
	UpdateToken          *string    `gorm:"column:update_token"`
	UpdateTokenExpiresAt *time.Time `gorm:"column:update_token_expires_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
