package chat_errors

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	ErrInvalidPairing   = errors.New("invalid participant pairing")
	ErrMalformedKey     = errors.New("malformed conversation key")
	ErrAmbiguousKey     = errors.New("ambiguous conversation key")
	ErrUnresolvable     = errors.New("conversation not resolvable")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyMessage     = errors.New("message requires text or an image")
	ErrRateLimited      = errors.New("rate limited")
	ErrDeliveryDegraded = errors.New("notification delivery degraded")
	ErrChannelLost      = errors.New("channel lost")
)

// RateLimitError is returned when a fixed window is exhausted. It wraps
// ErrRateLimited so callers can match with errors.Is, and carries the
// remaining window so the client knows when to retry.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfterSeconds())
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfterSeconds rounds the remaining window up to whole seconds,
// never reporting zero for a still-active window.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
