package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	chat_errors "craftlink-chat/pkg/errors"
)

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	c := NewClient(nil, nil, uuid.New(), "Ada", "conn-1", NewLogger())

	c.markClosed()

	assert.False(t, c.enqueue([]byte("{}")))
	assert.NotPanics(t, func() {
		c.sendEvent(ServerEvent{Type: EventJoined})
	})
	assert.NotPanics(t, c.markClosed, "a second close must be a no-op")
}

func TestEnqueueRacingCloseNeverPanics(t *testing.T) {
	c := NewClient(nil, nil, uuid.New(), "Ada", "conn-1", NewLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.enqueue([]byte("{}"))
			}
		}()
	}
	time.Sleep(time.Millisecond)
	c.markClosed()
	wg.Wait()

	assert.Equal(t, stateClosed, c.currentState())
	assert.False(t, c.enqueue([]byte("{}")))
}

func TestEnqueueDropsWhenBufferFull(t *testing.T) {
	c := NewClient(nil, nil, uuid.New(), "Ada", "conn-1", NewLogger())

	accepted := 0
	for i := 0; i < cap(c.send)+10; i++ {
		if c.enqueue([]byte("{}")) {
			accepted++
		}
	}
	assert.Equal(t, cap(c.send), accepted, "a full buffer must drop, not block")
}

func TestSendErrorEventMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "rate limited",
			err:      &chat_errors.RateLimitError{RetryAfter: 30 * time.Second},
			wantCode: CodeRateLimited,
		},
		{
			name:     "empty message",
			err:      chat_errors.ErrEmptyMessage,
			wantCode: CodeValidationFailed,
		},
		{
			name:     "invalid pairing",
			err:      chat_errors.ErrInvalidPairing,
			wantCode: CodeInvalidPairing,
		},
		{
			name:     "malformed key",
			err:      chat_errors.ErrMalformedKey,
			wantCode: CodeMalformedKey,
		},
		{
			name:     "ambiguous key",
			err:      chat_errors.ErrAmbiguousKey,
			wantCode: CodeMalformedKey,
		},
		{
			name:     "unauthorized",
			err:      chat_errors.ErrUnauthorized,
			wantCode: CodeUnauthorized,
		},
		{
			name:     "unexpected failure",
			err:      errors.New("pg: connection refused"),
			wantCode: CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := sendErrorEvent(tt.err)
			assert.Equal(t, EventError, ev.Type)
			assert.Equal(t, tt.wantCode, ev.Code)
		})
	}
}

func TestRateLimitedEventCarriesRetryAfter(t *testing.T) {
	ev := sendErrorEvent(&chat_errors.RateLimitError{RetryAfter: 42 * time.Second})
	assert.Equal(t, CodeRateLimited, ev.Code)
	assert.Equal(t, 42, ev.RetryAfterSeconds)
}
