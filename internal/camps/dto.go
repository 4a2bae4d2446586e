package camps

import (
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
)

// CampDTO is the API shape for a camp.
type CampDTO struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Location        *string    `json:"location,omitempty"`
	LeaderAccountID *uuid.UUID `json:"leader_account_id,omitempty"`
	MemberCount     int64      `json:"member_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateCampInput carries fields for a new camp.
type CreateCampInput struct {
	Name            string     `json:"name" validate:"required,min=2,max=120"`
	Location        *string    `json:"location" validate:"omitempty,max=200"`
	LeaderAccountID *uuid.UUID `json:"leader_account_id"`
}

// UpdateCampInput carries partial camp updates. LeaderAccountID uses a
// double pointer so callers can clear the designation explicitly.
type UpdateCampInput struct {
	Name            *string     `json:"name" validate:"omitempty,min=2,max=120"`
	Location        *string     `json:"location" validate:"omitempty,max=200"`
	LeaderAccountID **uuid.UUID `json:"leader_account_id"`
}

// ToModel builds a Camp from the create input.
func (in CreateCampInput) ToModel() *models.Camp {
	return &models.Camp{
		Name:            in.Name,
		Location:        in.Location,
		LeaderAccountID: in.LeaderAccountID,
	}
}

// FromModel maps a camp row to its DTO.
func FromModel(camp *models.Camp, memberCount int64) *CampDTO {
	if camp == nil {
		return nil
	}
	return &CampDTO{
		ID:              camp.ID,
		Name:            camp.Name,
		Location:        camp.Location,
		LeaderAccountID: camp.LeaderAccountID,
		MemberCount:     memberCount,
		CreatedAt:       camp.CreatedAt,
		UpdatedAt:       camp.UpdatedAt,
	}
}

// FromRow maps a counted listing row to its DTO.
func FromRow(row CampCountRow) *CampDTO {
	camp := row.Camp
	return FromModel(&camp, row.MemberCount)
}
