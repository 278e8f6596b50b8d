package presence

import (
	"context"

	"github.com/google/uuid"

	"craftlink-chat/internal/domain/conversation"
	"craftlink-chat/internal/repository"
	chat_errors "craftlink-chat/pkg/errors"
)

// ReadFunc receives the ids that actually transitioned to read, so the
// channel layer can propagate the receipt to the sender.
type ReadFunc func(conversationKey string, readerID uuid.UUID, messageIDs []uuid.UUID)

// ReadMarker applies read receipts. Marking is strictly per-message and
// idempotent: only messages of the named conversation whose recipient is the
// caller transition, an already-read id is skipped silently, and a batch
// repeating earlier ids is a no-op rather than an error. Ids from other
// conversations never transition, so a receipt is only ever broadcast to
// that conversation's participants.
type ReadMarker struct {
	store  repository.MessageStore
	onRead ReadFunc
}

func NewReadMarker(store repository.MessageStore, onRead ReadFunc) *ReadMarker {
	return &ReadMarker{store: store, onRead: onRead}
}

func (r *ReadMarker) MarkRead(ctx context.Context, conversationKey string, readerID uuid.UUID, messageIDs []uuid.UUID) ([]uuid.UUID, error) {
	if !conversation.IsParticipant(conversationKey, readerID.String()) {
		return nil, chat_errors.ErrUnauthorized
	}
	if len(messageIDs) == 0 {
		return nil, nil
	}

	changed, err := r.store.MarkRead(ctx, conversationKey, messageIDs, readerID)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 && r.onRead != nil {
		r.onRead(conversationKey, readerID, changed)
	}
	return changed, nil
}
