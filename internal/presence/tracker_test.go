package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transition struct {
	userID   uuid.UUID
	isTyping bool
}

type recorder struct {
	mu          sync.Mutex
	transitions []transition
}

func (r *recorder) record(_ string, userID uuid.UUID, isTyping bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition{userID: userID, isTyping: isTyping})
}

func (r *recorder) snapshot() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]transition, len(r.transitions))
	copy(out, r.transitions)
	return out
}

func TestSetTypingEmitsTransitionsOnly(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(time.Minute, rec.record)
	defer tracker.Stop()

	user := uuid.New()
	key := "a:b"

	tracker.SetTyping(key, user, true)
	tracker.SetTyping(key, user, true)
	tracker.SetTyping(key, user, true)
	tracker.SetTyping(key, user, false)

	got := rec.snapshot()
	require.Len(t, got, 2, "renewals while typing must stay silent")
	assert.Equal(t, transition{userID: user, isTyping: true}, got[0])
	assert.Equal(t, transition{userID: user, isTyping: false}, got[1])
}

func TestSetTypingFalseWithoutStateIsNoOp(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(time.Minute, rec.record)
	defer tracker.Stop()

	tracker.SetTyping("a:b", uuid.New(), false)
	assert.Empty(t, rec.snapshot())
}

func TestTypingExpiresWithoutStopEvent(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(20*time.Millisecond, rec.record)
	defer tracker.Stop()

	user := uuid.New()
	tracker.SetTyping("a:b", user, true)
	require.True(t, tracker.IsTyping("a:b", user))

	assert.Eventually(t, func() bool {
		return !tracker.IsTyping("a:b", user)
	}, time.Second, 5*time.Millisecond)

	got := rec.snapshot()
	require.Len(t, got, 2)
	assert.True(t, got[0].isTyping)
	assert.False(t, got[1].isTyping)
}

func TestRenewalOutrunsPendingExpiry(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(40*time.Millisecond, rec.record)
	defer tracker.Stop()

	user := uuid.New()
	tracker.SetTyping("a:b", user, true)

	// Keep renewing past several timeout lengths; the flag must hold.
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		tracker.SetTyping("a:b", user, true)
		time.Sleep(10 * time.Millisecond)
	}

	assert.True(t, tracker.IsTyping("a:b", user), "renewals must keep the flag alive")

	for _, tr := range rec.snapshot() {
		assert.True(t, tr.isTyping, "no stop transition may fire while renewals continue")
	}
}

func TestTrackerIsolatesConversationsAndUsers(t *testing.T) {
	tracker := NewTracker(time.Minute, nil)
	defer tracker.Stop()

	u1 := uuid.New()
	u2 := uuid.New()

	tracker.SetTyping("a:b", u1, true)

	assert.True(t, tracker.IsTyping("a:b", u1))
	assert.False(t, tracker.IsTyping("a:b", u2))
	assert.False(t, tracker.IsTyping("a:c", u1))
}

func TestStopCancelsTimersSilently(t *testing.T) {
	rec := &recorder{}
	tracker := NewTracker(20*time.Millisecond, rec.record)

	user := uuid.New()
	tracker.SetTyping("a:b", user, true)
	tracker.Stop()

	time.Sleep(60 * time.Millisecond)

	got := rec.snapshot()
	require.Len(t, got, 1, "only the start transition may be emitted")
	assert.True(t, got[0].isTyping)
}
