package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// Account is a login identity, optionally bound to a member, carrying the role
// and camp used for access scoping. Its role mirrors the bound member's role;
// the mirror is maintained procedurally on every member role write.
type Account struct {
	ID           uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string            `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string            `gorm:"column:password_hash;not null"`
	MemberID     *uuid.UUID        `gorm:"column:member_id;type:uuid"`
	Role         enums.AccountRole `gorm:"column:role;type:account_role;not null"`
	CampID       *uuid.UUID        `gorm:"column:camp_id;type:uuid"`

	// AuthID is the identity-provider record id. When the provider is
	// unreachable at creation it falls back to a deterministic uuid5 of the
	// email so the id is never reused across retries.
	AuthID    string     `gorm:"column:auth_id;not null"`
	Suspended bool       `gorm:"column:suspended;not null;default:false"`
	LastLogin *time.Time `gorm:"column:last_login_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
