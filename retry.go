package docvault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls how transient backend failures are retried.
type RetryConfig struct {
	// MaxAttempts includes the first call. Values below 1 mean a single attempt.
	MaxAttempts     int           `mapstructure:"max_attempts" validate:"min=0,max=20"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

func (c RetryConfig) attempts() int {
	return max(c.MaxAttempts, 1)
}

func (c RetryConfig) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// run calls fn up to attempts times, backing off between attempts while the
// error is transient. Each attempt gets its own deadline when a timeout is configured.
func (s *Service) run(ctx context.Context, attempts int, fn func(ctx context.Context, attempt int) error) error {
	attempt := 0

	operation := func() error {
		attempt++

		opCtx, cancel := s.withTimeout(ctx)
		defer cancel()

		err := classifyDeadline(ctx, fn(opCtx, attempt))
		if err == nil {
			return nil
		}

		if IsRetryable(err) && attempt < attempts {
			slog.Debug("retrying transient backend failure", "attempt", attempt, "err", err)
			return err
		}

		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.cfg.Retry.backOff(), uint64(attempts-1)), ctx) //nolint:gosec // attempts >= 1
	return backoff.Retry(operation, b)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// classifyDeadline reports an expired per-call deadline as a transient failure.
// Cancellation of the caller's own context is returned unchanged.
func classifyDeadline(parent context.Context, err error) error {
	if err == nil || parent.Err() != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTransient) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}
