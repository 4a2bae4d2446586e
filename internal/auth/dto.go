package auth

import (
	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges an expired access token plus its refresh token
// for a fresh pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AccountSummary is the caller-facing view of a login account.
type AccountSummary struct {
	ID       uuid.UUID         `json:"id"`
	Email    string            `json:"email"`
	Role     enums.AccountRole `json:"role"`
	CampID   *uuid.UUID        `json:"camp_id,omitempty"`
	MemberID *uuid.UUID        `json:"member_id,omitempty"`
}

// LoginResponse is returned on successful login or refresh.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Account      AccountSummary `json:"account"`
}

func summaryFromModel(account *models.Account) AccountSummary {
	return AccountSummary{
		ID:       account.ID,
		Email:    account.Email,
		Role:     account.Role,
		CampID:   account.CampID,
		MemberID: account.MemberID,
	}
}
