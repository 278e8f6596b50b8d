package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/domain/message"
	"craftlink-chat/internal/notify"
	"craftlink-chat/internal/ratelimit"
	"craftlink-chat/internal/repository"
	chat_errors "craftlink-chat/pkg/errors"
)

// ChatService owns the send-message pipeline: rate limit, content and
// pairing validation, durable persistence, and the detached notification
// dispatch. Live fan-out to the peer connection is the channel layer's job;
// this service never blocks on it.
type ChatService struct {
	store      repository.MessageStore
	directory  repository.UserDirectory
	limiter    *ratelimit.Limiter
	dispatcher *notify.Dispatcher
	logger     *zap.Logger

	notifyTimeout time.Duration
}

func NewChatService(
	store repository.MessageStore,
	directory repository.UserDirectory,
	limiter *ratelimit.Limiter,
	dispatcher *notify.Dispatcher,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		store:         store,
		directory:     directory,
		limiter:       limiter,
		dispatcher:    dispatcher,
		logger:        logger.With(zap.String("component", "chat")),
		notifyTimeout: 10 * time.Second,
	}
}

type SendInput struct {
	ConversationKey string
	Body            string
	ImageURL        string
}

// Send runs the pipeline for one inbound message. Persistence failures are
// returned to the sender (the message must never be acknowledged if it was
// not durably stored); notification failures never are.
func (s *ChatService) Send(ctx context.Context, senderID uuid.UUID, in SendInput) (message.Message, error) {
	peerID, err := s.counterpart(in.ConversationKey, senderID)
	if err != nil {
		return message.Message{}, err
	}

	if err := s.limiter.Allow(ctx, ratelimit.ClassMessage, senderID.String()); err != nil {
		return message.Message{}, err
	}

	if err := message.ValidateContent(in.Body, in.ImageURL); err != nil {
		return message.Message{}, err
	}

	sender, recipient, err := s.validatePairing(ctx, senderID, peerID)
	if err != nil {
		return message.Message{}, err
	}

	m := message.Message{
		ID:              uuid.New(),
		ConversationKey: in.ConversationKey,
		SenderID:        sender.ID,
		RecipientID:     recipient.ID,
		Body:            strings.TrimSpace(in.Body),
		ImageURL:        strings.TrimSpace(in.ImageURL),
		Status:          message.StatusSent,
	}
	if err := s.store.Create(ctx, &m); err != nil {
		return message.Message{}, err
	}

	// Fire-and-forget: the sender's ack never waits on providers, and a
	// dispatcher panic or timeout must not reach this request.
	go s.dispatchNotification(m, sender.DisplayName)

	return m, nil
}

// MarkDeliveredLive advances sent -> delivered after a successful emit to a
// live recipient connection.
func (s *ChatService) MarkDeliveredLive(ctx context.Context, messageID uuid.UUID) {
	if err := s.store.MarkDeliveredByID(ctx, messageID); err != nil {
		s.logger.Warn("delivered status update failed",
			zap.String("message_id", messageID.String()),
			zap.Error(err))
	}
}

func (s *ChatService) dispatchNotification(m message.Message, senderName string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notification dispatch panicked", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()

	result := s.dispatcher.Notify(ctx, m.ConversationKey, m.RecipientID, senderName, m.Preview())
	if err := result.Err(); err != nil {
		s.logger.Warn("notification delivery degraded",
			zap.String("message_id", m.ID.String()),
			zap.String("recipient_id", m.RecipientID.String()),
			zap.Error(err))
	}
}

// counterpart validates that senderID is a participant of key and returns
// the other participant's id.
func (s *ChatService) counterpart(key string, senderID uuid.UUID) (uuid.UUID, error) {
	other, err := conversation.Other(key, senderID.String())
	if err != nil {
		return uuid.Nil, err
	}
	peerID, err := uuid.Parse(other)
	if err != nil {
		return uuid.Nil, chat_errors.ErrMalformedKey
	}
	return peerID, nil
}

func (s *ChatService) validatePairing(ctx context.Context, senderID, peerID uuid.UUID) (conversation.Participant, conversation.Participant, error) {
	sender, err := s.directory.GetParticipant(ctx, senderID)
	if err != nil {
		return conversation.Participant{}, conversation.Participant{}, err
	}
	peer, err := s.directory.GetParticipant(ctx, peerID)
	if err != nil {
		return conversation.Participant{}, conversation.Participant{}, err
	}
	if err := conversation.ValidatePairing(sender, peer); err != nil {
		return conversation.Participant{}, conversation.Participant{}, err
	}
	return sender, peer, nil
}
