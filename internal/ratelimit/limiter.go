// Package ratelimit implements fixed-window rate limiting keyed by
// (operation class, user). The bucket store is pluggable: MemoryStore for a
// single instance, RedisStore when several instances must share counters.
package ratelimit

import (
	"context"
	"time"

	chat_errors "craftlink-chat/pkg/errors"
)

// Class is the operation class a bucket counts.
type Class string

const (
	ClassMessage Class = "message"
	ClassUpload  Class = "upload"
)

// Limit is the threshold for one class.
type Limit struct {
	Max    int
	Window time.Duration
}

// Store increments the counter behind a bucket key. Implementations must
// serialize increments for the same key: concurrent callers may never
// undercount. The returned count includes this call; ttl is the time until
// the current window resets.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// Decision is the outcome of one CheckAndConsume call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Limit      int
}

type Limiter struct {
	store   Store
	limits  map[Class]Limit
	metrics *Metrics
}

func NewLimiter(store Store, limits map[Class]Limit, metrics *Metrics) *Limiter {
	return &Limiter{store: store, limits: limits, metrics: metrics}
}

// CheckAndConsume consumes one slot from the (class, userID) bucket. The
// bucket is created lazily on first use and reset when its window expires.
// Every call increments; the call is allowed iff the post-increment count is
// within the class threshold.
func (l *Limiter) CheckAndConsume(ctx context.Context, class Class, userID string) (Decision, error) {
	limit, ok := l.limits[class]
	if !ok {
		return Decision{}, chat_errors.ErrInvalidInput
	}

	key := "ratelimit:" + userID + ":" + string(class)
	count, ttl, err := l.store.Incr(ctx, key, limit.Window)
	if err != nil {
		return Decision{}, err
	}

	l.metrics.observe(class, count > int64(limit.Max))

	if count > int64(limit.Max) {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: ttl,
			Limit:      limit.Max,
		}, nil
	}
	return Decision{
		Allowed:   true,
		Remaining: limit.Max - int(count),
		Limit:     limit.Max,
	}, nil
}

// Allow is CheckAndConsume folded into the error domain: a denial becomes a
// *chat_errors.RateLimitError carrying the retry-after.
func (l *Limiter) Allow(ctx context.Context, class Class, userID string) error {
	decision, err := l.CheckAndConsume(ctx, class, userID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &chat_errors.RateLimitError{RetryAfter: decision.RetryAfter}
	}
	return nil
}
