package attendance

import (
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// RosterRow is one member line on an event roster. Status and Notes are nil
// until someone marks the member; CanEdit tells the client whether the
// caller may mark this particular member.
type RosterRow struct {
	MemberID  uuid.UUID               `json:"member_id"`
	FirstName string                  `json:"first_name"`
	LastName  string                  `json:"last_name"`
	Role      enums.MemberRole        `json:"role"`
	Status    *enums.AttendanceStatus `json:"status,omitempty"`
	Notes     *string                 `json:"notes,omitempty"`
	CanEdit   bool                    `json:"can_edit"`
}

// RosterResult is the full roster for one event.
type RosterResult struct {
	EventID uuid.UUID   `json:"event_id"`
	Rows    []RosterRow `json:"rows"`
}

// MarkInput is one attendance mark request.
type MarkInput struct {
	MemberID uuid.UUID `json:"member_id" validate:"required"`
	Status   string    `json:"status" validate:"required"`
	Notes    *string   `json:"notes" validate:"omitempty,max=500"`
}

// MarkDecline names why one member's mark was refused.
type MarkDecline struct {
	MemberID uuid.UUID `json:"member_id"`
	Reason   string    `json:"reason"`
}

// BulkMarkResult reports which marks landed and which were declined.
type BulkMarkResult struct {
	EventID  uuid.UUID     `json:"event_id"`
	Applied  []uuid.UUID   `json:"applied"`
	Declined []MarkDecline `json:"declined"`
	MarkedAt time.Time     `json:"marked_at"`
}
