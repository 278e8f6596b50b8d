package ws

import (
	"github.com/google/uuid"

	"craftlink-chat/internal/domain/message"
)

// Client -> server event types.
const (
	EventJoin        = "join"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventMarkRead    = "mark-read"
)

// Server -> client event types.
const (
	EventJoined          = "joined"
	EventMessageReceived = "message-received"
	EventMessageSentAck  = "message-sent-ack"
	EventTypingChanged   = "typing-changed"
	EventMarkedRead      = "messages-marked-read"
	EventError           = "error"
)

// Error codes carried on error events.
const (
	CodeRateLimited      = "RATE_LIMITED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInvalidPairing   = "INVALID_PAIRING"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeNotJoined        = "NOT_JOINED"
	CodeMalformedKey     = "MALFORMED_KEY"
	CodeInternal         = "INTERNAL_ERROR"
)

// ClientEvent is an inbound frame from a connection.
type ClientEvent struct {
	Type            string      `json:"type"`
	ConversationKey string      `json:"conversation_key,omitempty"`
	Body            string      `json:"body,omitempty"`
	ImageURL        string      `json:"image_url,omitempty"`
	IsTyping        bool        `json:"is_typing,omitempty"`
	MessageIDs      []uuid.UUID `json:"message_ids,omitempty"`
}

// ServerEvent is an outbound frame. Only the fields relevant to the event
// type are populated; an absent is_typing reads as false.
type ServerEvent struct {
	Type              string           `json:"type"`
	ConversationKey   string           `json:"conversation_key,omitempty"`
	Message           *message.Message `json:"message,omitempty"`
	UserID            string           `json:"user_id,omitempty"`
	IsTyping          bool             `json:"is_typing,omitempty"`
	MessageIDs        []uuid.UUID      `json:"message_ids,omitempty"`
	Code              string           `json:"code,omitempty"`
	Error             string           `json:"error,omitempty"`
	RetryAfterSeconds int              `json:"retry_after_seconds,omitempty"`
}

func errorEvent(code, msg string) ServerEvent {
	return ServerEvent{Type: EventError, Code: code, Error: msg}
}

func rateLimitedEvent(retryAfterSeconds int) ServerEvent {
	return ServerEvent{
		Type:              EventError,
		Code:              CodeRateLimited,
		Error:             "rate limit exceeded",
		RetryAfterSeconds: retryAfterSeconds,
	}
}
