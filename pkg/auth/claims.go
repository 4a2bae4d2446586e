package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Role      enums.AccountRole
	CampID    *uuid.UUID
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. Role and camp
// are embedded so every request can be scoped without a DB round trip.
type AccessTokenClaims struct {
	AccountID uuid.UUID         `json:"account_id"`
	Role      enums.AccountRole `json:"role"`
	CampID    *uuid.UUID        `json:"camp_id,omitempty"`
	jwt.RegisteredClaims
}
