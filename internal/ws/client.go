package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/services"
	chat_errors "craftlink-chat/pkg/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Connection lifecycle states. A connection is authenticated before the
// upgrade completes, so clients never observe stateConnecting themselves.
type connState int32

const (
	stateConnecting connState = iota
	stateAuthenticated
	stateJoined
	stateClosed
)

// Presence traffic is throttled per connection; message sends go through
// the shared fixed-window limiter in the chat service instead.
const (
	typingEventsPerMinute = 60
	readEventsPerMinute   = 120
)

// Client represents a single realtime connection
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	userID       uuid.UUID
	displayName  string
	connID       string
	state        int32
	mu           sync.Mutex
	joined       string
	typingLimit *rate.Limiter
	readLimit   *rate.Limiter
	connectedAt time.Time
	// lastActivity is unix nanos, written by the read pump and read by the
	// write pump's idle check.
	lastActivity int64
	logger       *Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, displayName, connID string, logger *Logger) *Client {
	now := time.Now()
	return &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, 256),
		userID:       userID,
		displayName:  displayName,
		connID:       connID,
		state:        int32(stateAuthenticated),
		typingLimit:  rate.NewLimiter(rate.Limit(float64(typingEventsPerMinute)/60.0), typingEventsPerMinute),
		readLimit:    rate.NewLimiter(rate.Limit(float64(readEventsPerMinute)/60.0), readEventsPerMinute),
		connectedAt:  now,
		lastActivity: now.UnixNano(),
		logger:       logger,
	}
}

func (c *Client) currentState() connState {
	return connState(atomic.LoadInt32(&c.state))
}

// markClosed transitions to closed and closes the send channel. Both happen
// under the mutex, so an enqueue that already passed the state check cannot
// hit a closed channel.
func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if connState(atomic.LoadInt32(&c.state)) == stateClosed {
		return
	}
	atomic.StoreInt32(&c.state, int32(stateClosed))
	close(c.send)
}

// enqueue hands a frame to the write pump, reporting whether it was
// accepted. A closed client or a full buffer drops the frame.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if connState(atomic.LoadInt32(&c.state)) == stateClosed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) touch() {
	atomic.StoreInt64(&c.lastActivity, time.Now().UnixNano())
}

func (c *Client) idleFor() time.Duration {
	return time.Since(time.Unix(0, atomic.LoadInt64(&c.lastActivity)))
}

func (c *Client) joinedKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

func (c *Client) setJoined(key string) {
	c.mu.Lock()
	c.joined = key
	c.mu.Unlock()
	atomic.StoreInt32(&c.state, int32(stateJoined))
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("unexpected close", c.userID, c.connID, err)
			}
			break
		}

		raw = bytes.TrimSpace(bytes.Replace(raw, newline, space, -1))
		c.touch()

		if err := c.handleEvent(raw); err != nil {
			c.logger.Error("handle event failed", c.userID, c.connID, err)
		}
	}
}

// handleEvent processes one inbound frame. Frames from a single
// connection are handled in arrival order, which keeps sends from one
// device FIFO within a conversation.
func (c *Client) handleEvent(raw []byte) error {
	var ev ClientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.sendEvent(errorEvent(CodeValidationFailed, "malformed event"))
		return err
	}

	if ev.Type == EventJoin {
		return c.handleJoin(ev)
	}

	if c.currentState() != stateJoined {
		c.sendEvent(errorEvent(CodeNotJoined, "join a conversation first"))
		return nil
	}

	switch ev.Type {
	case EventSendMessage:
		return c.handleSend(ev)
	case EventTyping:
		return c.handleTyping(ev)
	case EventMarkRead:
		return c.handleMarkRead(ev)
	default:
		c.logger.Warn("unknown event type", c.userID, c.connID, zap.String("event_type", ev.Type))
		return nil
	}
}

func (c *Client) handleJoin(ev ClientEvent) error {
	if _, _, err := conversation.ParseKey(ev.ConversationKey); err != nil {
		c.sendEvent(errorEvent(CodeMalformedKey, "conversation key is not well-formed"))
		return nil
	}
	if !conversation.IsParticipant(ev.ConversationKey, c.userID.String()) {
		c.sendEvent(errorEvent(CodeUnauthorized, "not a participant of this conversation"))
		return nil
	}

	// Re-joining (including after a reconnect) replaces the previous key.
	if prev := c.joinedKey(); prev != "" && prev != ev.ConversationKey {
		c.hub.tracker.SetTyping(prev, c.userID, false)
	}

	c.setJoined(ev.ConversationKey)
	c.sendEvent(ServerEvent{Type: EventJoined, ConversationKey: ev.ConversationKey})
	c.logger.Info("joined conversation", c.userID, c.connID, zap.String("conversation_key", ev.ConversationKey))
	return nil
}

func (c *Client) handleSend(ev ClientEvent) error {
	key := c.joinedKey()
	if ev.ConversationKey != "" && ev.ConversationKey != key {
		c.sendEvent(errorEvent(CodeNotJoined, "event targets a conversation this connection has not joined"))
		return nil
	}

	m, err := c.hub.chat.Send(context.Background(), c.userID, services.SendInput{
		ConversationKey: key,
		Body:            ev.Body,
		ImageURL:        ev.ImageURL,
	})
	if err != nil {
		c.sendEvent(sendErrorEvent(err))
		return nil
	}

	c.sendEvent(ServerEvent{Type: EventMessageSentAck, ConversationKey: key, Message: &m})

	if c.hub.EmitToUser(key, m.RecipientID, ServerEvent{
		Type:            EventMessageReceived,
		ConversationKey: key,
		Message:         &m,
	}) {
		c.hub.chat.MarkDeliveredLive(context.Background(), m.ID)
	}
	return nil
}

func (c *Client) handleTyping(ev ClientEvent) error {
	if !c.typingLimit.Allow() {
		c.logger.Warn("typing rate limit exceeded", c.userID, c.connID)
		return nil
	}
	c.hub.tracker.SetTyping(c.joinedKey(), c.userID, ev.IsTyping)
	return nil
}

func (c *Client) handleMarkRead(ev ClientEvent) error {
	if !c.readLimit.Allow() {
		c.logger.Warn("read receipt rate limit exceeded", c.userID, c.connID)
		return nil
	}
	if len(ev.MessageIDs) == 0 {
		return nil
	}

	_, err := c.hub.readMarker.MarkRead(context.Background(), c.joinedKey(), c.userID, ev.MessageIDs)
	if err != nil {
		c.sendEvent(sendErrorEvent(err))
	}
	return nil
}

// sendErrorEvent maps a service error onto the wire error vocabulary.
func sendErrorEvent(err error) ServerEvent {
	var rle *chat_errors.RateLimitError
	if errors.As(err, &rle) {
		return rateLimitedEvent(rle.RetryAfterSeconds())
	}

	switch {
	case errors.Is(err, chat_errors.ErrEmptyMessage),
		errors.Is(err, chat_errors.ErrInvalidInput):
		return errorEvent(CodeValidationFailed, err.Error())
	case errors.Is(err, chat_errors.ErrInvalidPairing):
		return errorEvent(CodeInvalidPairing, "participants cannot converse with each other")
	case errors.Is(err, chat_errors.ErrMalformedKey), errors.Is(err, chat_errors.ErrAmbiguousKey):
		return errorEvent(CodeMalformedKey, "conversation key is not well-formed")
	case errors.Is(err, chat_errors.ErrUnauthorized), errors.Is(err, chat_errors.ErrForbidden):
		return errorEvent(CodeUnauthorized, "not a participant of this conversation")
	default:
		return errorEvent(CodeInternal, "internal error")
	}
}

func (c *Client) sendEvent(ev ServerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if !c.enqueue(data) {
		c.logger.Warn("event dropped", c.userID, c.connID)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

			if c.idleFor() > pongWait*2 {
				c.logger.Info("client idle timeout", c.userID, c.connID)
				return
			}
		}
	}
}
