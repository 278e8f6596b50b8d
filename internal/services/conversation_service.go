package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/domain/message"
	"craftlink-chat/internal/repository"
	chat_errors "craftlink-chat/pkg/errors"
)

// ConversationService serves the REST collaborator surface. A conversation
// has no creation record: it exists implicitly once a message has been
// exchanged, so OpenOrCreate only pre-validates the pairing and hands back
// the canonical key for the UI to show an empty thread.
type ConversationService struct {
	store     repository.MessageStore
	directory repository.UserDirectory
	logger    *zap.Logger
}

func NewConversationService(store repository.MessageStore, directory repository.UserDirectory, logger *zap.Logger) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		store:     store,
		directory: directory,
		logger:    logger.With(zap.String("component", "conversation")),
	}
}

// View is the bootstrap payload for a thread.
type View struct {
	Key         string                   `json:"key"`
	Peer        conversation.Participant `json:"peer"`
	LastMessage *message.Message         `json:"last_message,omitempty"`
}

func (s *ConversationService) OpenOrCreate(ctx context.Context, callerID, peerID uuid.UUID) (View, error) {
	caller, err := s.directory.GetParticipant(ctx, callerID)
	if err != nil {
		return View{}, err
	}
	peer, err := s.directory.GetParticipant(ctx, peerID)
	if err != nil {
		if errors.Is(err, chat_errors.ErrNotFound) {
			return View{}, chat_errors.ErrInvalidPairing
		}
		return View{}, err
	}
	if err := conversation.ValidatePairing(caller, peer); err != nil {
		return View{}, err
	}

	key, err := conversation.CanonicalKey(callerID.String(), peerID.String())
	if err != nil {
		return View{}, err
	}

	view := View{Key: key, Peer: peer}
	last, err := s.store.LatestMessage(ctx, key)
	switch {
	case err == nil:
		view.LastMessage = &last
	case errors.Is(err, chat_errors.ErrNotFound):
		// Fresh thread, nothing exchanged yet.
	default:
		return View{}, err
	}
	return view, nil
}

func (s *ConversationService) Get(ctx context.Context, callerID uuid.UUID, key string) (View, error) {
	peerID, err := s.requireParticipant(key, callerID)
	if err != nil {
		return View{}, err
	}
	return s.OpenOrCreate(ctx, callerID, peerID)
}

func (s *ConversationService) List(ctx context.Context, callerID uuid.UUID) ([]conversation.Summary, error) {
	summaries, err := s.store.ListSummaries(ctx, callerID)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		peer, err := s.directory.GetParticipant(ctx, summaries[i].PeerID)
		if err != nil {
			// A deactivated account still has history; surface the row.
			continue
		}
		summaries[i].PeerName = peer.DisplayName
	}
	return summaries, nil
}

// History lists a chronological page and, as a side effect, advances every
// still-sent message addressed to the caller to delivered.
func (s *ConversationService) History(ctx context.Context, callerID uuid.UUID, key string, before time.Time, limit int) ([]message.Message, error) {
	if _, err := s.requireParticipant(key, callerID); err != nil {
		return nil, err
	}

	if err := s.store.MarkConversationDelivered(ctx, key, callerID); err != nil {
		s.logger.Warn("bulk delivered update failed", zap.String("key", key), zap.Error(err))
	}
	return s.store.ListByConversation(ctx, key, before, limit)
}

// Resolve is the recovery path for an ambiguous or malformed conversation
// key: if the opaque value is a user the caller has prior messages with, the
// canonical key for (caller, that user) is returned. With no such history
// the value is unresolvable.
func (s *ConversationService) Resolve(ctx context.Context, callerID uuid.UUID, key string) (string, error) {
	a, b, err := conversation.ParseKey(key)
	if err == nil {
		// Already well-formed; just verify membership and normalize.
		if a != callerID.String() && b != callerID.String() {
			return "", chat_errors.ErrUnauthorized
		}
		return conversation.CanonicalKey(a, b)
	}
	if !errors.Is(err, chat_errors.ErrAmbiguousKey) && !errors.Is(err, chat_errors.ErrMalformedKey) {
		return "", err
	}

	candidate, parseErr := uuid.Parse(key)
	if parseErr != nil || candidate == callerID {
		return "", chat_errors.ErrUnresolvable
	}

	found, err := s.store.HasHistory(ctx, callerID, candidate)
	if err != nil {
		return "", err
	}
	if !found {
		return "", chat_errors.ErrUnresolvable
	}
	return conversation.CanonicalKey(callerID.String(), candidate.String())
}

func (s *ConversationService) requireParticipant(key string, callerID uuid.UUID) (uuid.UUID, error) {
	other, err := conversation.Other(key, callerID.String())
	if err != nil {
		return uuid.Nil, err
	}
	peerID, err := uuid.Parse(other)
	if err != nil {
		return uuid.Nil, chat_errors.ErrMalformedKey
	}
	return peerID, nil
}
