package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// EventDTO is the API shape for an event.
type EventDTO struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	Type               enums.EventType `json:"type"`
	Date               time.Time       `json:"date"`
	CampID             *uuid.UUID      `json:"camp_id,omitempty"`
	Recurring          bool            `json:"recurring"`
	MeetingURL         *string         `json:"meeting_url,omitempty"`
	CreatedByAccountID *uuid.UUID      `json:"created_by_account_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// CreateEventInput carries fields for a new event. A nil CampID makes the
// event global (visible to every camp).
type CreateEventInput struct {
	Name       string     `json:"name" validate:"required,min=2,max=160"`
	Type       string     `json:"type" validate:"required"`
	Date       time.Time  `json:"date" validate:"required"`
	CampID     *uuid.UUID `json:"camp_id"`
	Recurring  bool       `json:"recurring"`
	MeetingURL *string    `json:"meeting_url" validate:"omitempty,url"`
}

// UpdateEventInput carries partial event updates.
type UpdateEventInput struct {
	Name       *string    `json:"name" validate:"omitempty,min=2,max=160"`
	Type       *string    `json:"type"`
	Date       *time.Time `json:"date"`
	Recurring  *bool      `json:"recurring"`
	MeetingURL *string    `json:"meeting_url" validate:"omitempty,url"`
}

// FromModel maps an event row to its DTO.
func FromModel(event *models.Event) *EventDTO {
	if event == nil {
		return nil
	}
	return &EventDTO{
		ID:                 event.ID,
		Name:               event.Name,
		Type:               event.Type,
		Date:               event.Date,
		CampID:             event.CampID,
		Recurring:          event.Recurring,
		MeetingURL:         event.MeetingURL,
		CreatedByAccountID: event.CreatedByAccountID,
		CreatedAt:          event.CreatedAt,
		UpdatedAt:          event.UpdatedAt,
	}
}
