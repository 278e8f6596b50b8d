package chatclient

// Wire event names understood by the realtime endpoint.
const (
	eventJoin        = "join"
	eventSendMessage = "send-message"
	eventTyping      = "typing"
	eventMarkRead    = "mark-read"

	EventJoined          = "joined"
	EventMessageReceived = "message-received"
	EventMessageSentAck  = "message-sent-ack"
	EventTypingChanged   = "typing-changed"
	EventMarkedRead      = "messages-marked-read"
	EventError           = "error"
)

// Message is the message record as it appears on the wire.
type Message struct {
	ID              string `json:"id"`
	ConversationKey string `json:"conversation_key"`
	SenderID        string `json:"sender_id"`
	RecipientID     string `json:"recipient_id"`
	Body            string `json:"body,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

// Event is one inbound frame from the server.
type Event struct {
	Type              string   `json:"type"`
	ConversationKey   string   `json:"conversation_key,omitempty"`
	Message           *Message `json:"message,omitempty"`
	UserID            string   `json:"user_id,omitempty"`
	IsTyping          bool     `json:"is_typing,omitempty"`
	MessageIDs        []string `json:"message_ids,omitempty"`
	Code              string   `json:"code,omitempty"`
	Error             string   `json:"error,omitempty"`
	RetryAfterSeconds int      `json:"retry_after_seconds,omitempty"`
}

type outboundEvent struct {
	Type            string   `json:"type"`
	ConversationKey string   `json:"conversation_key,omitempty"`
	Body            string   `json:"body,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	IsTyping        bool     `json:"is_typing,omitempty"`
	MessageIDs      []string `json:"message_ids,omitempty"`
}
