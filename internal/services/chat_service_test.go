package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/domain/message"
	"craftlink-chat/internal/notify"
	"craftlink-chat/internal/ratelimit"
	chat_errors "craftlink-chat/pkg/errors"
)

type chatFixture struct {
	svc    *ChatService
	store  *memMessageStore
	client conversation.Participant
	pro    conversation.Participant
	key    string
}

func newChatFixture(t *testing.T, messageLimit int) *chatFixture {
	t.Helper()

	client := conversation.Participant{ID: uuid.New(), DisplayName: "Ada", Role: conversation.RoleClient}
	pro := conversation.Participant{ID: uuid.New(), DisplayName: "Bea", Role: conversation.RoleProfessional}

	key, err := conversation.CanonicalKey(client.ID.String(), pro.ID.String())
	require.NoError(t, err)

	store := newMemMessageStore()
	directory := newMemDirectory(client, pro)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassMessage: {Max: messageLimit, Window: time.Minute},
	}, nil)
	dispatcher := notify.NewDispatcher(&memPrefs{}, nil, nil, nil, nil)

	return &chatFixture{
		svc:    NewChatService(store, directory, limiter, dispatcher, nil),
		store:  store,
		client: client,
		pro:    pro,
		key:    key,
	}
}

func TestSendPersistsAndReturnsRecord(t *testing.T) {
	f := newChatFixture(t, 10)

	m, err := f.svc.Send(context.Background(), f.client.ID, SendInput{
		ConversationKey: f.key,
		Body:            "  hello  ",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, f.key, m.ConversationKey)
	assert.Equal(t, f.client.ID, m.SenderID)
	assert.Equal(t, f.pro.ID, m.RecipientID)
	assert.Equal(t, "hello", m.Body, "body must be trimmed")
	assert.Equal(t, message.StatusSent, m.Status)
	assert.False(t, m.CreatedAt.IsZero())

	stored, err := f.store.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, stored.ID)
}

func TestSendRejectsEmptyContentWithoutPersisting(t *testing.T) {
	f := newChatFixture(t, 10)

	_, err := f.svc.Send(context.Background(), f.client.ID, SendInput{
		ConversationKey: f.key,
		Body:            "   ",
	})
	assert.ErrorIs(t, err, chat_errors.ErrEmptyMessage)

	_, err = f.store.LatestMessage(context.Background(), f.key)
	assert.ErrorIs(t, err, chat_errors.ErrNotFound, "nothing may be persisted on rejection")
}

func TestSendRejectsNonParticipant(t *testing.T) {
	f := newChatFixture(t, 10)

	_, err := f.svc.Send(context.Background(), uuid.New(), SendInput{
		ConversationKey: f.key,
		Body:            "hi",
	})
	assert.ErrorIs(t, err, chat_errors.ErrUnauthorized)
}

func TestSendRateLimitSurfacesRetryAfter(t *testing.T) {
	f := newChatFixture(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Send(ctx, f.client.ID, SendInput{ConversationKey: f.key, Body: "m"})
		require.NoError(t, err, "send %d within quota", i+1)
	}

	_, err := f.svc.Send(ctx, f.client.ID, SendInput{ConversationKey: f.key, Body: "one too many"})
	require.Error(t, err)
	assert.ErrorIs(t, err, chat_errors.ErrRateLimited)

	var rle *chat_errors.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.GreaterOrEqual(t, rle.RetryAfterSeconds(), 1)

	// The peer's quota is untouched.
	_, err = f.svc.Send(ctx, f.pro.ID, SendInput{ConversationKey: f.key, Body: "still fine"})
	assert.NoError(t, err)
}

func TestSendKeepsChronologicalOrder(t *testing.T) {
	f := newChatFixture(t, 100)
	ctx := context.Background()

	bodies := []string{"first", "second", "third", "fourth"}
	for _, b := range bodies {
		_, err := f.svc.Send(ctx, f.client.ID, SendInput{ConversationKey: f.key, Body: b})
		require.NoError(t, err)
	}

	listed, err := f.store.ListByConversation(ctx, f.key, time.Time{}, 50)
	require.NoError(t, err)
	require.Len(t, listed, len(bodies))

	for i, m := range listed {
		assert.Equal(t, bodies[i], m.Body)
		if i > 0 {
			assert.False(t, m.CreatedAt.Before(listed[i-1].CreatedAt),
				"timestamps must be non-decreasing")
		}
	}
}

func TestMarkDeliveredLiveAdvancesOnlySent(t *testing.T) {
	f := newChatFixture(t, 10)
	ctx := context.Background()

	m, err := f.svc.Send(ctx, f.client.ID, SendInput{ConversationKey: f.key, Body: "hi"})
	require.NoError(t, err)

	f.svc.MarkDeliveredLive(ctx, m.ID)
	stored, err := f.store.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, message.StatusDelivered, stored.Status)
	require.NotNil(t, stored.DeliveredAt)

	// Read wins over a late delivered update.
	_, err = f.store.MarkRead(ctx, f.key, []uuid.UUID{m.ID}, f.pro.ID)
	require.NoError(t, err)
	f.svc.MarkDeliveredLive(ctx, m.ID)

	stored, err = f.store.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, message.StatusRead, stored.Status)
}
