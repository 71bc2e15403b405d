package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// Policy is the bounded retry policy applied to every page fetch,
// catalog pages and documents alike.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// Retrying wraps a Fetcher and retries transient failures.
// Terminal failures return immediately.
type Retrying struct {
	next    Fetcher
	policy  Policy
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewRetrying wraps next with policy.
func NewRetrying(next Fetcher, policy Policy, metrics *observability.Metrics, logger *slog.Logger) *Retrying {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Retrying{
		next:    next,
		policy:  policy,
		metrics: metrics,
		logger:  logger.With("component", "retry"),
	}
}

// Fetch retrieves loc, retrying transient failures up to the attempt ceiling.
func (r *Retrying) Fetch(ctx context.Context, loc types.Locator) (*types.Page, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		page, err := r.next.Fetch(ctx, loc)
		if err == nil {
			return page, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !types.IsTransient(err) {
			r.metrics.RequestsFailed.Add(1)
			return nil, err
		}

		lastErr = err
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay
		var fe *types.FetchError
		if errors.As(err, &fe) && fe.RetryAfter > delay {
			delay = fe.RetryAfter
		}

		r.metrics.RequestsRetried.Add(1)
		r.logger.Warn("transient fetch failure, retrying",
			"url", string(loc),
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	r.metrics.RequestsFailed.Add(1)
	return nil, fmt.Errorf("%w (%d attempts): %w", types.ErrMaxRetries, r.policy.MaxAttempts, lastErr)
}

// Close closes the wrapped fetcher.
func (r *Retrying) Close() error { return r.next.Close() }

// Type returns the wrapped fetcher's type.
func (r *Retrying) Type() string { return r.next.Type() }

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
