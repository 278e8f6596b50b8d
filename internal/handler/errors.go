package handler

import (
	"errors"
	"net/http"

	chat_errors "craftlink-chat/pkg/errors"
)

// statusForError maps service errors onto HTTP status codes and the wire
// error vocabulary shared with the realtime channel.
func statusForError(err error) (int, string) {
	var rle *chat_errors.RateLimitError
	if errors.As(err, &rle) {
		return http.StatusTooManyRequests, "RATE_LIMITED"
	}

	switch {
	case errors.Is(err, chat_errors.ErrEmptyMessage),
		errors.Is(err, chat_errors.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, chat_errors.ErrMalformedKey):
		return http.StatusBadRequest, "MALFORMED_KEY"
	case errors.Is(err, chat_errors.ErrAmbiguousKey):
		return http.StatusBadRequest, "AMBIGUOUS_KEY"
	case errors.Is(err, chat_errors.ErrInvalidPairing):
		return http.StatusUnprocessableEntity, "INVALID_PAIRING"
	case errors.Is(err, chat_errors.ErrUnauthorized):
		return http.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, chat_errors.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, chat_errors.ErrUnresolvable):
		return http.StatusNotFound, "UNRESOLVABLE"
	case errors.Is(err, chat_errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
