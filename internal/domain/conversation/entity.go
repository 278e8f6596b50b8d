package conversation

import (
	"time"

	"github.com/google/uuid"

	"craftlink-chat/internal/domain/message"
	chat_errors "craftlink-chat/pkg/errors"
)

// Participant roles. A conversation always pairs one client with one
// professional; any other combination is rejected before persistence.
const (
	RoleClient       = "client"
	RoleProfessional = "professional"
)

// Participant is the directory view of a user as the messaging core needs it.
type Participant struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	Email       string    `json:"email,omitempty"`
}

// ValidatePairing enforces the client/professional pairing rule.
func ValidatePairing(a, b Participant) error {
	if a.ID == b.ID {
		return chat_errors.ErrInvalidPairing
	}
	if a.Role == b.Role {
		return chat_errors.ErrInvalidPairing
	}
	valid := func(role string) bool {
		return role == RoleClient || role == RoleProfessional
	}
	if !valid(a.Role) || !valid(b.Role) {
		return chat_errors.ErrInvalidPairing
	}
	return nil
}

// Summary is one row of a user's conversation list, sorted by most recent
// activity. A conversation exists implicitly once at least one message has
// been exchanged; there is no conversations table behind this.
type Summary struct {
	Key          string           `json:"key"`
	PeerID       uuid.UUID        `json:"peer_id"`
	PeerName     string           `json:"peer_name,omitempty"`
	LastMessage  *message.Message `json:"last_message,omitempty"`
	UnreadCount  int              `json:"unread_count"`
	LastActivity time.Time        `json:"last_activity"`
}
