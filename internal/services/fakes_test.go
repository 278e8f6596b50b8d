package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/domain/message"
	"craftlink-chat/internal/domain/notification"
	chat_errors "craftlink-chat/pkg/errors"
)

// memMessageStore is an in-memory MessageStore with the same observable
// contract as the Postgres implementation, including the monotonic
// per-conversation timestamp clamp.
type memMessageStore struct {
	mu       sync.Mutex
	messages []message.Message
	now      time.Time
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{now: time.Now()}
}

func (s *memMessageStore) tick() time.Time {
	s.now = s.now.Add(time.Microsecond)
	return s.now
}

func (s *memMessageStore) Create(_ context.Context, m *message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.tick()
	for _, existing := range s.messages {
		if existing.ConversationKey == m.ConversationKey && existing.CreatedAt.After(created) {
			created = existing.CreatedAt
		}
	}
	m.CreatedAt = created
	s.messages = append(s.messages, *m)
	return nil
}

func (s *memMessageStore) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return message.Message{}, chat_errors.ErrNotFound
}

func (s *memMessageStore) ListByConversation(_ context.Context, key string, before time.Time, limit int) ([]message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var out []message.Message
	for _, m := range s.messages {
		if m.ConversationKey != key {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, m)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memMessageStore) LatestMessage(_ context.Context, key string) (message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].ConversationKey == key {
			return s.messages[i], nil
		}
	}
	return message.Message{}, chat_errors.ErrNotFound
}

func (s *memMessageStore) MarkRead(_ context.Context, conversationKey string, ids []uuid.UUID, recipientID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var changed []uuid.UUID
	for i := range s.messages {
		m := &s.messages[i]
		if !wanted[m.ID] || m.ConversationKey != conversationKey ||
			m.RecipientID != recipientID || m.Status == message.StatusRead {
			continue
		}
		now := s.tick()
		m.Status = message.StatusRead
		m.ReadAt = &now
		if m.DeliveredAt == nil {
			m.DeliveredAt = &now
		}
		changed = append(changed, m.ID)
	}
	return changed, nil
}

func (s *memMessageStore) MarkDeliveredByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		m := &s.messages[i]
		if m.ID == id && m.Status == message.StatusSent {
			now := s.tick()
			m.Status = message.StatusDelivered
			m.DeliveredAt = &now
		}
	}
	return nil
}

func (s *memMessageStore) MarkConversationDelivered(_ context.Context, key string, recipientID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		m := &s.messages[i]
		if m.ConversationKey == key && m.RecipientID == recipientID && m.Status == message.StatusSent {
			now := s.tick()
			m.Status = message.StatusDelivered
			m.DeliveredAt = &now
		}
	}
	return nil
}

func (s *memMessageStore) ListSummaries(_ context.Context, userID uuid.UUID) ([]conversation.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey := make(map[string]*conversation.Summary)
	for i := range s.messages {
		m := s.messages[i]
		if m.SenderID != userID && m.RecipientID != userID {
			continue
		}
		sum, ok := byKey[m.ConversationKey]
		if !ok {
			sum = &conversation.Summary{Key: m.ConversationKey}
			byKey[m.ConversationKey] = sum
		}
		if m.SenderID == userID {
			sum.PeerID = m.RecipientID
		} else {
			sum.PeerID = m.SenderID
		}
		last := m
		sum.LastMessage = &last
		sum.LastActivity = m.CreatedAt
		if m.RecipientID == userID && m.Status != message.StatusRead {
			sum.UnreadCount++
		}
	}

	var out []conversation.Summary
	for _, sum := range byKey {
		out = append(out, *sum)
	}
	return out, nil
}

func (s *memMessageStore) HasHistory(_ context.Context, userA, userB uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if (m.SenderID == userA && m.RecipientID == userB) ||
			(m.SenderID == userB && m.RecipientID == userA) {
			return true, nil
		}
	}
	return false, nil
}

type memDirectory struct {
	users map[uuid.UUID]conversation.Participant
}

func newMemDirectory(users ...conversation.Participant) *memDirectory {
	d := &memDirectory{users: make(map[uuid.UUID]conversation.Participant)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *memDirectory) GetParticipant(_ context.Context, id uuid.UUID) (conversation.Participant, error) {
	u, ok := d.users[id]
	if !ok {
		return conversation.Participant{}, chat_errors.ErrNotFound
	}
	return u, nil
}

type memPrefs struct {
	prefs map[uuid.UUID]notification.Preference
}

func (p *memPrefs) GetPreference(_ context.Context, userID uuid.UUID) (notification.Preference, error) {
	if p.prefs == nil {
		return notification.Preference{UserID: userID}, nil
	}
	pref, ok := p.prefs[userID]
	if !ok {
		return notification.Preference{UserID: userID}, nil
	}
	return pref, nil
}
