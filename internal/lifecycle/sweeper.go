package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Anonymizer runs one anonymization pass.
type Anonymizer interface {
	AnonymizeExpired(ctx context.Context) (SweepResult, error)
}

// Sweeper runs the anonymization pass periodically.
type Sweeper struct {
	target   Anonymizer
	interval time.Duration
}

// NewSweeper creates a Sweeper. A non-positive interval disables Run.
func NewSweeper(target Anonymizer, interval time.Duration) *Sweeper {
	return &Sweeper{target: target, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		middleware.Logger.Info("anonymization sweeper disabled")
		return
	}
	middleware.Logger.Info("anonymization sweeper started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			middleware.Logger.Info("anonymization sweeper stopped")
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single traced and measured pass.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.anonymize_expired")
	defer span.End()

	start := time.Now()
	result, err := s.target.AnonymizeExpired(ctx)
	observability.SweepDuration.Observe(time.Since(start).Seconds())
	observability.UsersAnonymized.Add(float64(result.Anonymized))

	span.AddAttributes(
		attribute.Int("sweep.scanned", result.Scanned),
		attribute.Int("sweep.anonymized", result.Anonymized),
	)

	if err != nil {
		span.SetError(err)
		observability.SweepRuns.WithLabelValues("error").Inc()
		middleware.Logger.ErrorContext(ctx, "anonymization sweep failed",
			slog.Int("scanned", result.Scanned),
			slog.Int("anonymized", result.Anonymized),
			slog.String("error", err.Error()),
		)
		return result, err
	}

	observability.SweepRuns.WithLabelValues("ok").Inc()
	if result.Anonymized > 0 {
		middleware.Logger.InfoContext(ctx, "anonymization sweep completed",
			slog.Int("scanned", result.Scanned),
			slog.Int("anonymized", result.Anonymized),
		)
	}
	return result, nil
}
