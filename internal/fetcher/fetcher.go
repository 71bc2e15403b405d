package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/lorekeeper/internal/config"
	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the page at loc.
	Fetch(ctx context.Context, loc types.Locator) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the configured fetcher wrapped in the uniform retry policy.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Retrying, error) {
	var base Fetcher
	switch cfg.Fetcher.Type {
	case "http":
		f, err := NewHTTPFetcher(cfg, metrics, logger)
		if err != nil {
			return nil, err
		}
		base = f
	case "browser":
		f, err := NewBrowserFetcher(ctx, cfg, metrics, logger)
		if err != nil {
			return nil, err
		}
		base = f
	default:
		return nil, fmt.Errorf("unsupported fetcher type: %s", cfg.Fetcher.Type)
	}

	policy := Policy{MaxAttempts: cfg.Fetcher.MaxAttempts, Delay: cfg.Fetcher.RetryDelay}
	return NewRetrying(base, policy, metrics, logger), nil
}

// newLimiter spaces consecutive requests by delay. A zero delay disables it.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
