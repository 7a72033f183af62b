package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

// Roles, strongest first.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleMember = "member"
)

type User struct {
	ID    uuid.UUID
	Email string
	Name  string
	Role  string
}

func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns nil for anonymous requests.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsEditor is true for anyone who may manage prompts.
func (u *User) IsEditor() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleEditor)
}

func (u *User) IsMember() bool {
	return u != nil
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEditor, RoleMember:
		return true
	}
	return false
}
