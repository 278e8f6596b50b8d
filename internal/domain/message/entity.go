package message

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	chat_errors "craftlink-chat/pkg/errors"
)

// Status is the monotonic delivery ladder of a message. The sender produces
// the message; only the delivery/read subsystem advances the status.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

var statusRank = map[Status]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// CanAdvanceTo reports whether moving from s to next keeps the ladder
// monotonic. Re-applying the current status is allowed (idempotent updates).
func (s Status) CanAdvanceTo(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// Message represents the messages table. Immutable once created except for
// the status columns.
type Message struct {
	ID              uuid.UUID  `json:"id"`
	ConversationKey string     `json:"conversation_key"`
	SenderID        uuid.UUID  `json:"sender_id"`
	RecipientID     uuid.UUID  `json:"recipient_id"`
	Body            string     `json:"body,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
}

const MaxBodyLength = 4000

// ValidateContent enforces the content rule: at least one of text/image must
// be present (both together is fine), an image reference must be an absolute
// http(s) URL, and text is bounded.
func ValidateContent(body, imageURL string) error {
	body = strings.TrimSpace(body)
	imageURL = strings.TrimSpace(imageURL)

	if body == "" && imageURL == "" {
		return chat_errors.ErrEmptyMessage
	}
	if len(body) > MaxBodyLength {
		return chat_errors.ErrInvalidInput
	}
	if imageURL != "" {
		u, err := url.Parse(imageURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return chat_errors.ErrInvalidInput
		}
	}
	return nil
}

// Preview renders the short notification preview for this message.
func (m *Message) Preview() string {
	body := strings.TrimSpace(m.Body)
	if body == "" {
		return "Sent you a photo"
	}
	const max = 120
	if len(body) > max {
		return body[:max] + "…"
	}
	return body
}
