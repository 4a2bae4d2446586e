package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// AccountUpsertedEvent tells the identity provider to create or refresh an account.
type AccountUpsertedEvent struct {
	AccountID uuid.UUID          `json:"account_id"`
	AuthID    string             `json:"auth_id"`
	Email     string             `json:"email"`
	Role      enums.AccountRole  `json:"role"`
	MemberID  *uuid.UUID         `json:"member_id,omitempty"`
	CampID    *uuid.UUID         `json:"camp_id,omitempty"`
}

// AccountDeletedEvent is emitted when a member loses access and the
// identity-provider record should be removed.
type AccountDeletedEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	AuthID    string    `json:"auth_id"`
	Email     string    `json:"email"`
	DeletedAt time.Time `json:"deleted_at"`
}

// AccountSuspensionEvent toggles the ban flag on the identity provider.
type AccountSuspensionEvent struct {
	AccountID uuid.UUID `json:"account_id"`
	AuthID    string    `json:"auth_id"`
	Suspended bool      `json:"suspended"`
}

// SMSRequestedEvent carries one outbound message batch for the SMS vendor.
type SMSRequestedEvent struct {
	BatchID    uuid.UUID `json:"batch_id"`
	Recipients []string  `json:"recipients"`
	Message    string    `json:"message"`
	SenderID   string    `json:"sender_id,omitempty"`
}
