// Package lifecycle owns account withdrawal, restoration and the delayed
// anonymization of withdrawn accounts.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/session"
)

// DefaultRetention is how long a withdrawn account keeps its personal data.
const DefaultRetention = 7 * 24 * time.Hour

// defaultBatch bounds how many accounts one sweep pass scrubs.
const defaultBatch = 500

// Invalidator receives the cached views a lifecycle change made stale.
type Invalidator interface {
	Invalidate(ctx context.Context, targets ...cache.Target)
}

// SweepResult reports one anonymization pass.
type SweepResult struct {
	Scanned    int `json:"scanned"`
	Anonymized int `json:"anonymized"`
}

// Manager applies account lifecycle transitions.
type Manager struct {
	users       repository.UserRepository
	invalidator Invalidator
	retention   time.Duration
	batch       int
	now         func() time.Time
}

// NewManager creates a Manager. A non-positive retention uses DefaultRetention
// and a nil invalidator drops signals.
func NewManager(users repository.UserRepository, invalidator Invalidator, retention time.Duration) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Manager{
		users:       users,
		invalidator: invalidator,
		retention:   retention,
		batch:       defaultBatch,
		now:         time.Now,
	}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Retention returns the configured retention period.
func (m *Manager) Retention() time.Duration {
	return m.retention
}

// Withdraw marks the account withdrawn. The caller must be the owner or an
// admin. Withdrawing an already withdrawn account re-stamps it.
func (m *Manager) Withdraw(ctx context.Context, sess session.Session, userID uint) error {
	if !sess.Authenticated() {
		return models.NewUnauthorizedError("Sign in to withdraw an account")
	}
	if !sess.CanActOn(userID) {
		return models.NewForbiddenError("You can only withdraw your own account")
	}

	changed, err := m.users.Withdraw(ctx, userID, m.now().UTC())
	if err != nil {
		return err
	}
	if !changed {
		user, err := m.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.IsAnonymized() {
			return models.NewConflictError("Account has already been anonymized")
		}
		return models.NewConflictError("Account changed concurrently, retry")
	}

	observability.AccountTransitions.WithLabelValues(string(models.AccountWithdrawn)).Inc()
	middleware.Logger.InfoContext(ctx, "account withdrawn",
		slog.Uint64("target_user_id", uint64(userID)),
		slog.Bool("by_admin", !sess.Owns(userID)),
	)
	m.invalidate(ctx, userID)
	return nil
}

// Restore reactivates a withdrawn account. Admin only. Restoring an active
// account succeeds without change; an anonymized account cannot be restored.
func (m *Manager) Restore(ctx context.Context, sess session.Session, userID uint) error {
	if !sess.Authenticated() {
		return models.NewUnauthorizedError("Sign in to restore an account")
	}
	if !sess.IsAdmin() {
		return models.NewForbiddenError("Only admins can restore accounts")
	}

	changed, err := m.users.Restore(ctx, userID)
	if err != nil {
		return err
	}
	if !changed {
		user, err := m.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		switch user.State {
		case models.AccountActive:
			return nil
		case models.AccountAnonymized:
			return models.NewConflictError("Account has been anonymized and cannot be restored")
		default:
			return models.NewConflictError("Account changed concurrently, retry")
		}
	}

	observability.AccountTransitions.WithLabelValues(string(models.AccountActive)).Inc()
	middleware.Logger.InfoContext(ctx, "account restored", slog.Uint64("target_user_id", uint64(userID)))
	m.invalidate(ctx, userID)
	return nil
}

// AnonymizeExpired scrubs every withdrawn account past retention. Each
// account is one guarded UPDATE, so concurrent sweeps and restores are safe.
// Per-account failures are logged and joined into the returned error.
func (m *Manager) AnonymizeExpired(ctx context.Context) (SweepResult, error) {
	now := m.now().UTC()
	cutoff := now.Add(-m.retention)

	ids, err := m.users.FindExpired(ctx, cutoff, m.batch)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Scanned: len(ids)}
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		changed, err := m.users.Anonymize(ctx, id, cutoff, now)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "anonymize failed",
				slog.Uint64("target_user_id", uint64(id)),
				slog.String("error", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		if !changed {
			continue
		}
		result.Anonymized++
		observability.AccountTransitions.WithLabelValues(string(models.AccountAnonymized)).Inc()
		m.invalidate(ctx, id)
	}
	return result, errors.Join(errs...)
}

func (m *Manager) invalidate(ctx context.Context, userID uint) {
	if m.invalidator == nil {
		return
	}
	postIDs, err := m.users.ContentPostIDs(ctx, userID)
	if err != nil {
		// The profile and listings are still dropped; post details expire on TTL.
		middleware.Logger.WarnContext(ctx, "could not list posts to invalidate",
			slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
	}
	m.invalidator.Invalidate(ctx, cache.UserTargets(userID, postIDs...)...)
}
