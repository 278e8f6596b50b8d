package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey      contextKey = "auth_user_id"
	displayNameKey contextKey = "auth_display_name"
	roleKey        contextKey = "auth_role"
)

// WithUserContext attaches the authenticated caller to the request context.
func WithUserContext(ctx context.Context, userID uuid.UUID, displayName, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, displayNameKey, displayName)
	ctx = context.WithValue(ctx, roleKey, role)
	return ctx
}

// UserIDFromContext returns the authenticated caller's id, if present.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// RoleFromContext returns the authenticated caller's role, if present.
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey).(string)
	return role, ok
}
