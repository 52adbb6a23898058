// Package session carries the resolved caller identity through request
// handling. Every component that authorizes takes a Session explicitly.
package session

import (
	"context"

	"inkwell/internal/models"
)

// Session is the identity resolved from a request. The zero value is an
// anonymous caller.
type Session struct {
	UserID uint
	Role   models.Role
}

// Anonymous is the session of an unauthenticated caller.
var Anonymous = Session{}

// Operator is the session of trusted command-line tooling. It acts as an
// admin and owns no account.
var Operator = Session{UserID: ^uint(0), Role: models.RoleAdmin}

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool {
	return s.UserID != 0
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == models.RoleAdmin
}

// Owns reports whether the caller is the given user.
func (s Session) Owns(userID uint) bool {
	return s.Authenticated() && s.UserID == userID
}

// CanActOn reports whether the caller is an admin or the owner of userID.
func (s Session) CanActOn(userID uint) bool {
	return s.IsAdmin() || s.Owns(userID)
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, or Anonymous.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(ctxKey{}).(Session); ok {
		return s
	}
	return Anonymous
}
