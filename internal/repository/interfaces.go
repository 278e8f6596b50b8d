package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/domain/message"
	"craftlink-chat/internal/domain/notification"
)

// MessageStore is the durable append-only message log the core writes to.
// Implementations must list chronologically by creation time and keep
// per-conversation timestamps non-decreasing as observed by a reader.
type MessageStore interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)

	// ListByConversation returns messages older than before (zero time means
	// newest page), in chronological order within the page.
	ListByConversation(ctx context.Context, key string, before time.Time, limit int) ([]message.Message, error)

	LatestMessage(ctx context.Context, key string) (message.Message, error)

	// MarkRead advances the given messages to read, but only where the message
	// belongs to the conversation, the caller is the recipient and the message
	// is not already read. Returns the ids actually changed; repeating the call
	// is a no-op, not an error. The key filter keeps a caller from read-marking
	// messages of a conversation they merely hold ids for.
	MarkRead(ctx context.Context, conversationKey string, ids []uuid.UUID, recipientID uuid.UUID) ([]uuid.UUID, error)

	// MarkDeliveredByID advances a single message sent -> delivered after a
	// successful live emit to the recipient's connection.
	MarkDeliveredByID(ctx context.Context, id uuid.UUID) error

	// MarkConversationDelivered advances every still-sent message addressed
	// to recipientID in the conversation. Invoked when the recipient lists
	// history.
	MarkConversationDelivered(ctx context.Context, key string, recipientID uuid.UUID) error

	ListSummaries(ctx context.Context, userID uuid.UUID) ([]conversation.Summary, error)

	// HasHistory reports whether any message has been exchanged between the
	// two users, in either direction. Backs the resolve-by-history path.
	HasHistory(ctx context.Context, userA, userB uuid.UUID) (bool, error)
}

// PreferenceStore provides the per-user notification preferences.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID uuid.UUID) (notification.Preference, error)
}

// UserDirectory resolves participant identity and role. The marketplace's
// account system owns the users table; the core only reads it.
type UserDirectory interface {
	GetParticipant(ctx context.Context, id uuid.UUID) (conversation.Participant, error)
}
