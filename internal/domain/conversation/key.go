package conversation

import (
	"strings"

	chat_errors "craftlink-chat/pkg/errors"
)

// KeySeparator joins the two participant identifiers of a canonical key.
// Participant identifiers are UUIDs and never contain it, so a well-formed
// key always splits into exactly two parts.
const KeySeparator = ":"

// CanonicalKey derives the order-independent key for a pair of participants:
// CanonicalKey(a, b) == CanonicalKey(b, a). The identifiers are ordered
// lexicographically before joining. Pairing a participant with itself is
// rejected with ErrInvalidPairing.
func CanonicalKey(idA, idB string) (string, error) {
	a := strings.TrimSpace(idA)
	b := strings.TrimSpace(idB)
	if a == "" || b == "" {
		return "", chat_errors.ErrInvalidPairing
	}
	if a == b {
		return "", chat_errors.ErrInvalidPairing
	}
	if a > b {
		a, b = b, a
	}
	return a + KeySeparator + b, nil
}

// ParseKey splits a canonical key into its two participant identifiers.
//
// A value with no separator at all is classified as ErrAmbiguousKey rather
// than ErrMalformedKey: it may be a single opaque identifier (a legacy
// conversation id, or one participant's UUID) that the resolve-by-history
// path can still recover. Anything else that fails to split into exactly two
// non-empty parts is ErrMalformedKey.
func ParseKey(key string) (string, string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", "", chat_errors.ErrMalformedKey
	}

	parts := strings.Split(trimmed, KeySeparator)
	if len(parts) == 1 {
		return "", "", chat_errors.ErrAmbiguousKey
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", chat_errors.ErrMalformedKey
	}
	return parts[0], parts[1], nil
}

// Other returns the counterpart of userID within key.
// Fails with ErrUnauthorized when userID is not one of the two participants.
func Other(key, userID string) (string, error) {
	a, b, err := ParseKey(key)
	if err != nil {
		return "", err
	}
	switch userID {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", chat_errors.ErrUnauthorized
}

// IsParticipant reports whether userID is one of the two participants of key.
func IsParticipant(key, userID string) bool {
	_, err := Other(key, userID)
	return err == nil
}
