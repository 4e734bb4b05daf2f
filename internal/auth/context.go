package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tailaid/tailaid-api/internal/domain"
)

// Auth types recorded on the user context
const (
	AuthTypeJWT    = "jwt"
	AuthTypeAPIKey = "api_key"
)

// SystemUserID identifies requests made with the admin API key
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// UserContext holds authenticated user information
type UserContext struct {
	UserID   uuid.UUID
	Name     string
	Email    string
	Role     domain.UserRole
	AuthType string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

func (u *UserContext) IsAdmin() bool {
	return u.Role == domain.RoleAdmin
}

// IsFacility reports whether the user is a hospital or rescue center
func (u *UserContext) IsFacility() bool {
	return u.Role.IsFacility()
}

// Owns reports whether a reporter id stored on an alert refers to this user.
// Reporter ids are either the user id or, from older clients, the email.
func (u *UserContext) Owns(reporterID string) bool {
	if reporterID == "" {
		return false
	}
	return reporterID == u.UserID.String() || strings.EqualFold(reporterID, u.Email)
}
