package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
)

type contextKey string

const (
	ctxAccountID contextKey = "account_id"
	ctxRole      contextKey = "actor_role"
	ctxCampID    contextKey = "camp_id"
)

// AccountIDFromContext returns the authenticated account id, or "".
func AccountIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccountID).(string); ok {
		return v
	}
	return ""
}

// RoleFromContext returns the authenticated account role, or "".
func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// CampIDFromContext returns the caller's camp id, or "".
func CampIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCampID).(string); ok {
		return v
	}
	return ""
}

// WithAccountID injects the account identifier into the context.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccountID, accountID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithCampID injects the camp identifier into the context.
func WithCampID(ctx context.Context, campID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCampID, campID)
}

// CallerFromContext rebuilds the authz caller seeded by the auth middleware.
// The boolean is false when no authenticated account is present.
func CallerFromContext(ctx context.Context) (authz.Caller, bool) {
	accountID, err := uuid.Parse(AccountIDFromContext(ctx))
	if err != nil {
		return authz.Caller{}, false
	}
	caller := authz.Caller{
		AccountID: accountID,
		Role:      enums.AccountRole(RoleFromContext(ctx)),
	}
	if raw := CampIDFromContext(ctx); raw != "" {
		if campID, err := uuid.Parse(raw); err == nil {
			caller.CampID = &campID
		}
	}
	return caller, true
}
