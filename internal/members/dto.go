package members

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// MemberDTO exposes member data in API responses.
type MemberDTO struct {
	ID            uuid.UUID            `json:"id"`
	FirstName     string               `json:"first_name"`
	LastName      string               `json:"last_name"`
	Email         *string              `json:"email,omitempty"`
	Phone         *string              `json:"phone,omitempty"`
	Role          enums.MemberRole     `json:"role"`
	Status        enums.MemberStatus   `json:"status"`
	Category      enums.MemberCategory `json:"category"`
	CampID        *uuid.UUID           `json:"camp_id,omitempty"`
	CampName      *string              `json:"camp_name,omitempty"`
	Birthday      *time.Time           `json:"birthday,omitempty"`
	Residence     *string              `json:"residence,omitempty"`
	Region        *string              `json:"region,omitempty"`
	GuardianName  *string              `json:"guardian_name,omitempty"`
	GuardianPhone *string              `json:"guardian_phone,omitempty"`
	PictureURL    *string              `json:"picture_url,omitempty"`
	Tags          []string             `json:"tags,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// CreateMemberInput holds creation-time member data.
type CreateMemberInput struct {
	FirstName     string
	LastName      string
	Email         *string
	Phone         *string
	Role          enums.MemberRole
	Status        enums.MemberStatus
	Category      enums.MemberCategory
	CampID        *uuid.UUID
	Birthday      *time.Time
	Residence     *string
	Region        *string
	GuardianName  *string
	GuardianPhone *string
	PictureURL    *string
	Tags          []string
}

// UpdateMemberInput captures the mutable member fields; nil means unchanged.
type UpdateMemberInput struct {
	FirstName     *string
	LastName      *string
	Email         *string
	Phone         *string
	Role          *enums.MemberRole
	Status        *enums.MemberStatus
	Category      *enums.MemberCategory
	CampID        **uuid.UUID
	Birthday      *time.Time
	Residence     *string
	Region        *string
	GuardianName  *string
	GuardianPhone *string
	PictureURL    *string
	Tags          *[]string
}

// SelfUpdateInput is the field subset a member may edit about themself.
type SelfUpdateInput struct {
	Phone         *string
	Birthday      *time.Time
	Residence     *string
	Region        *string
	GuardianName  *string
	GuardianPhone *string
	PictureURL    *string
}

// MemberRow joins a member with its camp name for listings.
type MemberRow struct {
	models.Member
	CampName *string `gorm:"column:camp_name"`
}

// FromModel maps the persisted member into a DTO.
func FromModel(m *models.Member) *MemberDTO {
	if m == nil {
		return nil
	}
	return &MemberDTO{
		ID:            m.ID,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Email:         m.Email,
		Phone:         m.Phone,
		Role:          m.Role,
		Status:        m.Status,
		Category:      m.Category,
		CampID:        m.CampID,
		Birthday:      m.Birthday,
		Residence:     m.Residence,
		Region:        m.Region,
		GuardianName:  m.GuardianName,
		GuardianPhone: m.GuardianPhone,
		PictureURL:    m.PictureURL,
		Tags:          m.Tags,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FromRow maps a joined listing row into a DTO.
func FromRow(row MemberRow) *MemberDTO {
	dto := FromModel(&row.Member)
	dto.CampName = row.CampName
	return dto
}

// ToModel prepares the GORM model from creation input, supplying defaults.
func (c CreateMemberInput) ToModel() *models.Member {
	model := &models.Member{
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Email:         c.Email,
		Phone:         c.Phone,
		Role:          c.Role,
		Status:        c.Status,
		Category:      c.Category,
		CampID:        c.CampID,
		Birthday:      c.Birthday,
		Residence:     c.Residence,
		Region:        c.Region,
		GuardianName:  c.GuardianName,
		GuardianPhone: c.GuardianPhone,
		PictureURL:    c.PictureURL,
	}
	if model.Role == "" {
		model.Role = enums.MemberRoleMember
	}
	if model.Status == "" {
		model.Status = enums.MemberStatusActive
	}
	if model.Category == "" {
		model.Category = enums.MemberCategoryStudent
	}
	if c.Tags != nil {
		model.Tags = make(pq.StringArray, len(c.Tags))
		copy(model.Tags, c.Tags)
	}
	return model
}
