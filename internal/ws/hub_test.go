package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftlink-chat/internal/auth"
	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/domain/message"
	"craftlink-chat/internal/domain/notification"
	"craftlink-chat/internal/notify"
	"craftlink-chat/internal/ratelimit"
	"craftlink-chat/internal/repository"
	"craftlink-chat/internal/services"
)

// stubStore implements the slice of MessageStore the channel layer reaches:
// persistence on send, the delivered advance after a live emit, and the
// conversation-scoped read transition.
type stubStore struct {
	repository.MessageStore

	mu       sync.Mutex
	messages map[uuid.UUID]*message.Message
}

func newStubStore() *stubStore {
	return &stubStore{messages: make(map[uuid.UUID]*message.Message)}
}

func (s *stubStore) Create(_ context.Context, m *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.CreatedAt = time.Now()
	stored := *m
	s.messages[m.ID] = &stored
	return nil
}

func (s *stubStore) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[id]; ok {
		return *m, nil
	}
	return message.Message{}, nil
}

func (s *stubStore) MarkDeliveredByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[id]; ok && m.Status == message.StatusSent {
		now := time.Now()
		m.Status = message.StatusDelivered
		m.DeliveredAt = &now
	}
	return nil
}

func (s *stubStore) MarkRead(_ context.Context, conversationKey string, ids []uuid.UUID, recipientID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed []uuid.UUID
	for _, id := range ids {
		m, ok := s.messages[id]
		if !ok || m.ConversationKey != conversationKey ||
			m.RecipientID != recipientID || m.Status == message.StatusRead {
			continue
		}
		now := time.Now()
		m.Status = message.StatusRead
		m.ReadAt = &now
		changed = append(changed, id)
	}
	return changed, nil
}

func (s *stubStore) status(id uuid.UUID) message.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.messages[id]; ok {
		return m.Status
	}
	return ""
}

type stubDirectory struct {
	users map[uuid.UUID]conversation.Participant
}

func (d *stubDirectory) GetParticipant(_ context.Context, id uuid.UUID) (conversation.Participant, error) {
	return d.users[id], nil
}

type stubPrefs struct{}

func (stubPrefs) GetPreference(_ context.Context, userID uuid.UUID) (notification.Preference, error) {
	return notification.Preference{UserID: userID}, nil
}

type channelFixture struct {
	ts     *httptest.Server
	hub    *Hub
	tokens *auth.TokenService
	store  *stubStore
	client conversation.Participant
	pro    conversation.Participant
	key    string
}

func newChannelFixture(t *testing.T) *channelFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := conversation.Participant{ID: uuid.New(), DisplayName: "Ada", Role: conversation.RoleClient}
	pro := conversation.Participant{ID: uuid.New(), DisplayName: "Bea", Role: conversation.RoleProfessional}
	key, err := conversation.CanonicalKey(client.ID.String(), pro.ID.String())
	require.NoError(t, err)

	store := newStubStore()
	directory := &stubDirectory{users: map[uuid.UUID]conversation.Participant{
		client.ID: client,
		pro.ID:    pro,
	}}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassMessage: {Max: 100, Window: time.Minute},
	}, nil)
	dispatcher := notify.NewDispatcher(stubPrefs{}, nil, nil, nil, nil)
	chat := services.NewChatService(store, directory, limiter, dispatcher, nil)

	hub := NewHub(chat, store, time.Second)
	go hub.Run()
	t.Cleanup(hub.Stop)

	tokens := auth.NewTokenService("channel-test-secret", time.Hour)
	engine := gin.New()
	engine.GET("/ws", NewHandler(hub, tokens).Handle)

	ts := httptest.NewServer(engine)
	t.Cleanup(ts.Close)

	return &channelFixture{
		ts:     ts,
		hub:    hub,
		tokens: tokens,
		store:  store,
		client: client,
		pro:    pro,
		key:    key,
	}
}

// eventReader splits newline-batched frames into individual events.
type eventReader struct {
	conn    *websocket.Conn
	pending [][]byte
}

func (f *channelFixture) dial(t *testing.T, p conversation.Participant) *eventReader {
	t.Helper()

	token, err := f.tokens.Mint(p.ID, p.DisplayName, p.Role)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &eventReader{conn: conn}
}

func (r *eventReader) send(t *testing.T, ev ClientEvent) {
	t.Helper()
	require.NoError(t, r.conn.WriteJSON(ev))
}

func (r *eventReader) next(t *testing.T) ServerEvent {
	t.Helper()
	if len(r.pending) == 0 {
		require.NoError(t, r.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := r.conn.ReadMessage()
		require.NoError(t, err)
		r.pending = bytes.Split(data, []byte{'\n'})
	}
	raw := r.pending[0]
	r.pending = r.pending[1:]

	var ev ServerEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func (r *eventReader) join(t *testing.T, key string) {
	t.Helper()
	r.send(t, ClientEvent{Type: EventJoin, ConversationKey: key})
	ev := r.next(t)
	require.Equal(t, EventJoined, ev.Type)
	require.Equal(t, key, ev.ConversationKey)
}

func TestHandlerRejectsBadToken(t *testing.T) {
	f := newChannelFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws?token=garbage"
	_, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.Error(t, err, "handshake must fail without a valid token")
}

func TestJoinRejectsMalformedKey(t *testing.T) {
	f := newChannelFixture(t)
	conn := f.dial(t, f.client)

	conn.send(t, ClientEvent{Type: EventJoin, ConversationKey: "a:b:c"})
	ev := conn.next(t)

	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, CodeMalformedKey, ev.Code)
}

func TestJoinRejectsNonParticipant(t *testing.T) {
	f := newChannelFixture(t)
	conn := f.dial(t, f.client)

	foreignKey, err := conversation.CanonicalKey(uuid.New().String(), uuid.New().String())
	require.NoError(t, err)

	conn.send(t, ClientEvent{Type: EventJoin, ConversationKey: foreignKey})
	ev := conn.next(t)

	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, CodeUnauthorized, ev.Code)
}

func TestEventsBeforeJoinAreRejected(t *testing.T) {
	f := newChannelFixture(t)
	conn := f.dial(t, f.client)

	conn.send(t, ClientEvent{Type: EventSendMessage, Body: "hello"})
	ev := conn.next(t)

	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, CodeNotJoined, ev.Code)
}

func TestSendAcksSenderAndFansOutToPeer(t *testing.T) {
	f := newChannelFixture(t)

	sender := f.dial(t, f.client)
	receiver := f.dial(t, f.pro)
	sender.join(t, f.key)
	receiver.join(t, f.key)

	sender.send(t, ClientEvent{Type: EventSendMessage, ConversationKey: f.key, Body: "hello"})

	ack := sender.next(t)
	require.Equal(t, EventMessageSentAck, ack.Type)
	require.NotNil(t, ack.Message)
	assert.Equal(t, "hello", ack.Message.Body)
	assert.Equal(t, f.client.ID, ack.Message.SenderID)

	got := receiver.next(t)
	require.Equal(t, EventMessageReceived, got.Type)
	require.NotNil(t, got.Message)
	assert.Equal(t, ack.Message.ID, got.Message.ID)

	// A successful live emit advances the stored status.
	assert.Eventually(t, func() bool {
		return f.store.status(ack.Message.ID) == message.StatusDelivered
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendValidationFailureEmitsErrorEvent(t *testing.T) {
	f := newChannelFixture(t)
	conn := f.dial(t, f.client)
	conn.join(t, f.key)

	conn.send(t, ClientEvent{Type: EventSendMessage, ConversationKey: f.key, Body: "   "})
	ev := conn.next(t)

	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, CodeValidationFailed, ev.Code)
}

func TestSendToNotJoinedConversationIsRejected(t *testing.T) {
	f := newChannelFixture(t)
	conn := f.dial(t, f.client)
	conn.join(t, f.key)

	otherKey, err := conversation.CanonicalKey(f.client.ID.String(), uuid.New().String())
	require.NoError(t, err)

	conn.send(t, ClientEvent{Type: EventSendMessage, ConversationKey: otherKey, Body: "hi"})
	ev := conn.next(t)

	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, CodeNotJoined, ev.Code)
}

func TestMessagesFromOneConnectionArriveInOrder(t *testing.T) {
	f := newChannelFixture(t)

	sender := f.dial(t, f.client)
	receiver := f.dial(t, f.pro)
	sender.join(t, f.key)
	receiver.join(t, f.key)

	bodies := []string{"one", "two", "three", "four", "five"}
	for _, body := range bodies {
		sender.send(t, ClientEvent{Type: EventSendMessage, ConversationKey: f.key, Body: body})
	}

	for _, want := range bodies {
		ev := receiver.next(t)
		require.Equal(t, EventMessageReceived, ev.Type)
		require.NotNil(t, ev.Message)
		assert.Equal(t, want, ev.Message.Body)
	}
}

func TestMarkReadPropagatesReceiptToSender(t *testing.T) {
	f := newChannelFixture(t)

	sender := f.dial(t, f.client)
	receiver := f.dial(t, f.pro)
	sender.join(t, f.key)
	receiver.join(t, f.key)

	sender.send(t, ClientEvent{Type: EventSendMessage, ConversationKey: f.key, Body: "hello"})
	ack := sender.next(t)
	require.Equal(t, EventMessageSentAck, ack.Type)

	got := receiver.next(t)
	require.Equal(t, EventMessageReceived, got.Type)

	receiver.send(t, ClientEvent{Type: EventMarkRead, MessageIDs: []uuid.UUID{got.Message.ID}})

	receipt := sender.next(t)
	assert.Equal(t, EventMarkedRead, receipt.Type)
	assert.Equal(t, f.pro.ID.String(), receipt.UserID)
	assert.Equal(t, []uuid.UUID{got.Message.ID}, receipt.MessageIDs)
	assert.Equal(t, message.StatusRead, f.store.status(got.Message.ID))
}

func TestTypingFansOutToCounterpartOnly(t *testing.T) {
	f := newChannelFixture(t)

	typist := f.dial(t, f.client)
	watcher := f.dial(t, f.pro)
	typist.join(t, f.key)
	watcher.join(t, f.key)

	typist.send(t, ClientEvent{Type: EventTyping, IsTyping: true})

	ev := watcher.next(t)
	assert.Equal(t, EventTypingChanged, ev.Type)
	assert.Equal(t, f.client.ID.String(), ev.UserID)
	assert.True(t, ev.IsTyping)
}
