package ratelimit

import (
	"context"
	"sync"
	"time"
)

// bucket is the one piece of process-wide mutable state in the core: shared
// by every concurrent request from the same user, so all mutation happens
// under its mutex.
type bucket struct {
	mu          sync.Mutex
	count       int64
	windowStart time.Time
}

// MemoryStore keeps buckets in process memory. Suitable for a single
// instance; use RedisStore when counters must be shared.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{}
		s.buckets[key] = b
	}
	now := s.now()
	s.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= window {
		b.windowStart = now
		b.count = 0
	}
	b.count++

	ttl := b.windowStart.Add(window).Sub(now)
	return b.count, ttl, nil
}

// Reset drops the bucket for a key (admin/test operation).
func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	delete(s.buckets, key)
	s.mu.Unlock()
}

// SetClock overrides the time source for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}
