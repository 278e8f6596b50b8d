package httpdto

import (
	"time"

	"craftlink-chat/internal/domain/message"
)

// SendMessageRequest is used for POST /v1/conversations/:key/messages
type SendMessageRequest struct {
	Body     string `json:"body"`
	ImageURL string `json:"image_url"`
}

// MessageDTO represents a message in API responses
type MessageDTO struct {
	ID              string     `json:"id"`
	ConversationKey string     `json:"conversation_key"`
	SenderID        string     `json:"sender_id"`
	RecipientID     string     `json:"recipient_id"`
	Body            string     `json:"body,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
}

// ListMessagesResponse is returned when paging through history
type ListMessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
}

func FromMessage(m message.Message) MessageDTO {
	return MessageDTO{
		ID:              m.ID.String(),
		ConversationKey: m.ConversationKey,
		SenderID:        m.SenderID.String(),
		RecipientID:     m.RecipientID.String(),
		Body:            m.Body,
		ImageURL:        m.ImageURL,
		Status:          string(m.Status),
		CreatedAt:       m.CreatedAt,
		DeliveredAt:     m.DeliveredAt,
		ReadAt:          m.ReadAt,
	}
}

func FromMessageSlice(items []message.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(items))
	for _, m := range items {
		out = append(out, FromMessage(m))
	}
	return out
}
