// Package service implements the application's use cases on top of the
// repositories. Every entry point that authorizes takes the caller's
// session.Session explicitly.
package service

import (
	"context"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/session"
)

const (
	// DefaultPageSize is the listing size when the caller gives none.
	DefaultPageSize = 20
	// MaxPageSize caps every listing.
	MaxPageSize = 100
)

// Invalidator receives the cached views a mutation made stale.
type Invalidator interface {
	Invalidate(ctx context.Context, targets ...cache.Target)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...cache.Target) {}

func orNoop(inv Invalidator) Invalidator {
	if inv == nil {
		return noopInvalidator{}
	}
	return inv
}

// Page is one slice of a listing.
type Page[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func requireSession(sess session.Session) error {
	if !sess.Authenticated() {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}

func requireAdmin(sess session.Session) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	if !sess.IsAdmin() {
		return models.NewForbiddenError("Admin access required")
	}
	return nil
}
