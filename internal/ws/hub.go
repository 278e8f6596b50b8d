package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/presence"
	"craftlink-chat/internal/repository"
	"craftlink-chat/internal/services"
)

const maxConnectionsPerUser = 10

// Hub maintains the set of active clients and routes events between the
// two participants of each conversation. It also answers reachability
// queries for the notification dispatcher: a user is reachable for a
// conversation only while one of their connections has joined it.
type Hub struct {
	clients    map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	chat       *services.ChatService
	tracker    *presence.Tracker
	readMarker *presence.ReadMarker
	limiter    *ConnectionRateLimiter
	logger     *Logger
	mu         sync.RWMutex
	stopChan   chan struct{}
	isRunning  int32
}

// ConnectionRateLimiter bounds new connections per user over a sliding minute
type ConnectionRateLimiter struct {
	connectionsPerUser map[uuid.UUID][]time.Time
	mu                 sync.Mutex
}

func NewConnectionRateLimiter() *ConnectionRateLimiter {
	crl := &ConnectionRateLimiter{
		connectionsPerUser: make(map[uuid.UUID][]time.Time),
	}
	go crl.cleanupLoop()
	return crl
}

func (w *ConnectionRateLimiter) AllowConnection(userID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-1 * time.Minute)

	valid := []time.Time{}
	for _, t := range w.connectionsPerUser[userID] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= maxConnectionsPerUser {
		return false
	}

	w.connectionsPerUser[userID] = append(valid, now)
	return true
}

func (w *ConnectionRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		w.cleanup()
	}
}

func (w *ConnectionRateLimiter) cleanup() {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)

	for userID, times := range w.connectionsPerUser {
		valid := []time.Time{}
		for _, t := range times {
			if t.After(cutoff) {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(w.connectionsPerUser, userID)
		} else {
			w.connectionsPerUser[userID] = valid
		}
	}
}

// NewHub creates a Hub and wires the typing tracker and read marker so
// that their transitions fan out to the counterpart participant.
func NewHub(chat *services.ChatService, store repository.MessageStore, typingTimeout time.Duration) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		chat:       chat,
		limiter:    NewConnectionRateLimiter(),
		logger:     NewLogger(),
		stopChan:   make(chan struct{}),
	}
	h.tracker = presence.NewTracker(typingTimeout, h.onTypingChanged)
	h.readMarker = presence.NewReadMarker(store, h.onMessagesRead)
	return h
}

// Run starts the Hub
func (h *Hub) Run() {
	atomic.StoreInt32(&h.isRunning, 1)
	defer atomic.StoreInt32(&h.isRunning, 0)

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case <-h.stopChan:
			return
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.limiter.AllowConnection(client.userID) {
		h.logger.Warn("connection rate limit exceeded", client.userID, client.connID)
		client.conn.Close()
		return
	}

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[string]*Client)
	}

	if len(h.clients[client.userID]) >= maxConnectionsPerUser {
		h.logger.Warn("max connections per user reached", client.userID, client.connID)
		for id, c := range h.clients[client.userID] {
			h.removeClient(c)
			delete(h.clients[client.userID], id)
			break
		}
	}

	h.clients[client.userID][client.connID] = client

	h.logger.Info("client connected", client.userID, client.connID)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userClients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := userClients[client.connID]; !ok {
		return
	}

	delete(userClients, client.connID)
	h.removeClient(client)

	if len(userClients) == 0 {
		delete(h.clients, client.userID)
	}

	// A dropped connection stops typing immediately rather than waiting
	// for the debounce timer.
	if key := client.joinedKey(); key != "" {
		h.tracker.SetTyping(key, client.userID, false)
	}

	h.logger.Info("client disconnected", client.userID, client.connID)
}

func (h *Hub) removeClient(client *Client) {
	client.markClosed()
	client.conn.Close()
}

// EmitToUser delivers an event to every connection of userID that has
// joined conversationKey. It reports whether at least one connection
// accepted the event.
func (h *Hub) EmitToUser(conversationKey string, userID uuid.UUID, ev ServerEvent) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return false
	}

	delivered := false
	for _, client := range h.clients[userID] {
		if client.joinedKey() != conversationKey {
			continue
		}
		if client.enqueue(data) {
			delivered = true
		} else {
			h.logger.Warn("event dropped", client.userID, client.connID)
		}
	}
	return delivered
}

// IsReachable implements notify.Reachability.
func (h *Hub) IsReachable(conversationKey string, userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[userID] {
		if client.joinedKey() == conversationKey {
			return true
		}
	}
	return false
}

// Register queues a freshly upgraded connection for registration.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Tracker exposes the typing tracker for the attached clients.
func (h *Hub) Tracker() *presence.Tracker {
	return h.tracker
}

// ReadMarker exposes the read marker for the attached clients.
func (h *Hub) ReadMarker() *presence.ReadMarker {
	return h.readMarker
}

func (h *Hub) onTypingChanged(conversationKey string, userID uuid.UUID, isTyping bool) {
	other, err := conversation.Other(conversationKey, userID.String())
	if err != nil {
		return
	}
	otherID, err := uuid.Parse(other)
	if err != nil {
		return
	}
	h.EmitToUser(conversationKey, otherID, ServerEvent{
		Type:            EventTypingChanged,
		ConversationKey: conversationKey,
		UserID:          userID.String(),
		IsTyping:        isTyping,
	})
}

func (h *Hub) onMessagesRead(conversationKey string, readerID uuid.UUID, messageIDs []uuid.UUID) {
	other, err := conversation.Other(conversationKey, readerID.String())
	if err != nil {
		return
	}
	otherID, err := uuid.Parse(other)
	if err != nil {
		return
	}
	h.EmitToUser(conversationKey, otherID, ServerEvent{
		Type:            EventMarkedRead,
		ConversationKey: conversationKey,
		UserID:          readerID.String(),
		MessageIDs:      messageIDs,
	})
}

// Stop gracefully shuts down the Hub
func (h *Hub) Stop() {
	close(h.stopChan)
	h.tracker.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userClients := range h.clients {
		for _, client := range userClients {
			h.removeClient(client)
		}
	}
	h.clients = make(map[uuid.UUID]map[string]*Client)
}
