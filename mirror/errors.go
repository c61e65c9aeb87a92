package mirror

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/api/googleapi"
)

// ErrorClass represents whether a store error should be retried or not.
type ErrorClass int

const (
	// ErrorClassRetryable indicates a transient failure (quota, 5xx, timeouts).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates the request itself is wrong (4xx, bad range).
	ErrorClassFatal
	// ErrorClassUnknown indicates the error type cannot be determined.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifyStoreError classifies errors returned by a msglog.Table.
//
// Retryable: HTTP 429 and 5xx from the Sheets API, network timeouts,
// connection resets, deadline exceeded on a per-call context.
// Fatal: other 4xx (permission denied, unknown spreadsheet, bad range),
// canceled parent contexts.
func ClassifyStoreError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	if errors.Is(err, context.Canceled) {
		return ErrorClassFatal
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 429, gerr.Code >= 500:
			return ErrorClassRetryable
		case gerr.Code >= 400:
			return ErrorClassFatal
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassRetryable
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrorClassRetryable
	}
	lower := strings.ToLower(err.Error())
	for _, p := range []string{"connection reset", "connection refused", "broken pipe", "rate limit", "quota", "unavailable"} {
		if strings.Contains(lower, p) {
			return ErrorClassRetryable
		}
	}
	return ErrorClassUnknown
}

// retryIdempotent runs fn up to attempts times while it fails with a
// retryable error, backing off exponentially from base. Only idempotent calls
// (reads, in-place updates) may be passed here; an append retried after an
// ambiguous failure duplicates rows.
func retryIdempotent(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && ClassifyStoreError(err) != ErrorClassRetryable {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(max(attempts, 1))))
	return err
}
