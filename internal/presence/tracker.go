// Package presence tracks ephemeral per-conversation state: typing flags
// with a debounce timeout, and read-receipt propagation. Nothing here is
// persisted.
package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type typingKey struct {
	conversationKey string
	userID          uuid.UUID
}

type typingEntry struct {
	seq   uint64
	timer *time.Timer
}

// ChangeFunc receives typing transitions: true when a user starts typing,
// false when they stop or the debounce expires.
type ChangeFunc func(conversationKey string, userID uuid.UUID, isTyping bool)

// Tracker maintains one typing entry per (conversation, user). Mutation of
// an entry is serialized under the tracker mutex, and a timeout-triggered
// clear is conditional: it carries the sequence number observed when the
// timer was armed and no-ops if a renewal advanced it since. That closes the
// renew/expire race that would otherwise flap the flag.
type Tracker struct {
	mu       sync.Mutex
	entries  map[typingKey]*typingEntry
	timeout  time.Duration
	onChange ChangeFunc
}

func NewTracker(timeout time.Duration, onChange ChangeFunc) *Tracker {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Tracker{
		entries:  make(map[typingKey]*typingEntry),
		timeout:  timeout,
		onChange: onChange,
	}
}

// SetTyping sets or clears the typing flag. Setting true (re)arms the
// debounce; a flaky client that never sends false still has its indicator
// cleared when the timeout expires. Only transitions are emitted: renewals
// while already typing stay silent.
func (t *Tracker) SetTyping(conversationKey string, userID uuid.UUID, isTyping bool) {
	k := typingKey{conversationKey: conversationKey, userID: userID}

	t.mu.Lock()
	entry, exists := t.entries[k]

	if !isTyping {
		if !exists {
			t.mu.Unlock()
			return
		}
		entry.timer.Stop()
		delete(t.entries, k)
		t.mu.Unlock()
		t.emit(conversationKey, userID, false)
		return
	}

	if exists {
		entry.seq++
		seq := entry.seq
		entry.timer.Stop()
		entry.timer = time.AfterFunc(t.timeout, func() { t.expire(k, seq) })
		t.mu.Unlock()
		return
	}

	entry = &typingEntry{seq: 1}
	seq := entry.seq
	entry.timer = time.AfterFunc(t.timeout, func() { t.expire(k, seq) })
	t.entries[k] = entry
	t.mu.Unlock()
	t.emit(conversationKey, userID, true)
}

// IsTyping reports whether the flag is currently set.
func (t *Tracker) IsTyping(conversationKey string, userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{conversationKey: conversationKey, userID: userID}]
	return ok
}

// Stop cancels all pending timers without emitting transitions.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, entry := range t.entries {
		entry.timer.Stop()
		delete(t.entries, k)
	}
}

func (t *Tracker) expire(k typingKey, seq uint64) {
	t.mu.Lock()
	entry, exists := t.entries[k]
	if !exists || entry.seq != seq {
		// Renewed (or cleared) after this timer was armed.
		t.mu.Unlock()
		return
	}
	delete(t.entries, k)
	t.mu.Unlock()
	t.emit(k.conversationKey, k.userID, false)
}

func (t *Tracker) emit(conversationKey string, userID uuid.UUID, isTyping bool) {
	if t.onChange != nil {
		t.onChange(conversationKey, userID, isTyping)
	}
}
