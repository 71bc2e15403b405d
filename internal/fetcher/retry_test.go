package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// scriptedFetcher returns the queued errors in order, then succeeds.
type scriptedFetcher struct {
	errs  []error
	calls int
}

func (f *scriptedFetcher) Fetch(_ context.Context, loc types.Locator) (*types.Page, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return types.NewRenderedPage(loc, 200, []byte("<p>ok</p>"), string(loc), 0), nil
}

func (f *scriptedFetcher) Close() error { return nil }
func (f *scriptedFetcher) Type() string { return "scripted" }

func connReset(loc types.Locator) error {
	return &types.FetchError{
		URL:       string(loc),
		Err:       &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)},
		Retryable: true,
	}
}

func TestRetryingRecoversFromTransientFailures(t *testing.T) {
	loc := types.Locator("https://example.com/a/x/")
	next := &scriptedFetcher{errs: []error{connReset(loc), connReset(loc)}}
	metrics := observability.NewMetrics(testLogger)
	r := NewRetrying(next, Policy{MaxAttempts: 3}, metrics, testLogger)

	page, err := r.Fetch(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", string(page.Body))
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, int64(2), metrics.RequestsRetried.Load())
}

func TestRetryingGivesUpAtCeiling(t *testing.T) {
	loc := types.Locator("https://example.com/a/x/")
	next := &scriptedFetcher{errs: []error{connReset(loc), connReset(loc), connReset(loc)}}
	r := NewRetrying(next, Policy{MaxAttempts: 2}, observability.NewMetrics(testLogger), testLogger)

	_, err := r.Fetch(context.Background(), loc)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMaxRetries)
	assert.ErrorIs(t, err, syscall.ECONNRESET)
	assert.Equal(t, 2, next.calls)
}

func TestRetryingDoesNotRetryTerminal(t *testing.T) {
	loc := types.Locator("https://example.com/missing/")
	terminal := &types.FetchError{URL: string(loc), StatusCode: 404, Err: errors.New("HTTP 404")}
	next := &scriptedFetcher{errs: []error{terminal}}
	r := NewRetrying(next, Policy{MaxAttempts: 5}, observability.NewMetrics(testLogger), testLogger)

	_, err := r.Fetch(context.Background(), loc)
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrMaxRetries)
	assert.Equal(t, 1, next.calls)
}

func TestRetryingBackoffHonoursCancellation(t *testing.T) {
	loc := types.Locator("https://example.com/a/x/")
	next := &scriptedFetcher{errs: []error{connReset(loc), connReset(loc)}}
	r := NewRetrying(next, Policy{MaxAttempts: 3, Delay: time.Hour}, observability.NewMetrics(testLogger), testLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Fetch(ctx, loc)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, next.calls)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"reset", &net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, true},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"other", errors.New("malformed"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}
