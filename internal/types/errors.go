package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrMaxRetries      = errors.New("max retries exceeded")
	ErrNotFound        = errors.New("element not found")
	ErrEmptyContent    = errors.New("no text extracted")
	ErrInvalidLocator  = errors.New("invalid locator")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownMode     = errors.New("unknown extraction mode")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// IsTransient reports whether err is a fetch failure worth retrying.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable
}

// StructuralError reports an expected heading, list or region missing from a page.
type StructuralError struct {
	URL      string
	Selector string
	Err      error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structure error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// Missing returns a StructuralError for a selector that matched nothing.
func Missing(url, selector string) *StructuralError {
	return &StructuralError{URL: url, Selector: selector, Err: ErrNotFound}
}

// StorageError wraps errors that occur while persisting documents or state.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IngestError wraps a failure of the downstream ingestion sink. It halts the crawl.
type IngestError struct {
	Backend string
	BatchID string
	Err     error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest error (%s, batch %s): %v", e.Backend, e.BatchID, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
