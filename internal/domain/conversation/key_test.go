package conversation

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat_errors "craftlink-chat/pkg/errors"
)

func TestCanonicalKeySymmetry(t *testing.T) {
	a := uuid.New().String()
	b := uuid.New().String()

	k1, err := CanonicalKey(a, b)
	require.NoError(t, err)
	k2, err := CanonicalKey(b, a)
	require.NoError(t, err)

	assert.Equal(t, k1, k2, "participant order must not matter")
}

func TestCanonicalKeyOrdering(t *testing.T) {
	k, err := CanonicalKey("bbb", "aaa")
	require.NoError(t, err)
	assert.Equal(t, "aaa:bbb", k)
}

func TestCanonicalKeyRejectsInvalidPairs(t *testing.T) {
	id := uuid.New().String()

	tests := []struct {
		name string
		a, b string
	}{
		{name: "same participant", a: id, b: id},
		{name: "empty first id", a: "", b: id},
		{name: "empty second id", a: id, b: ""},
		{name: "whitespace id", a: "   ", b: id},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CanonicalKey(tt.a, tt.b)
			assert.ErrorIs(t, err, chat_errors.ErrInvalidPairing)
		})
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	a := uuid.New().String()
	b := uuid.New().String()

	key, err := CanonicalKey(a, b)
	require.NoError(t, err)

	p1, p2, err := ParseKey(key)
	require.NoError(t, err)

	rebuilt, err := CanonicalKey(p1, p2)
	require.NoError(t, err)
	assert.Equal(t, key, rebuilt)
}

func TestParseKeyClassification(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{name: "bare uuid is ambiguous", key: uuid.New().String(), want: chat_errors.ErrAmbiguousKey},
		{name: "three parts", key: "a:b:c", want: chat_errors.ErrMalformedKey},
		{name: "empty part", key: "a:", want: chat_errors.ErrMalformedKey},
		{name: "empty key", key: "", want: chat_errors.ErrMalformedKey},
		{name: "only separator", key: ":", want: chat_errors.ErrMalformedKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseKey(tt.key)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestOther(t *testing.T) {
	a := "aaa"
	b := "bbb"
	key := a + KeySeparator + b

	got, err := Other(key, a)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	got, err = Other(key, b)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = Other(key, "ccc")
	assert.ErrorIs(t, err, chat_errors.ErrUnauthorized)
}

func TestIsParticipant(t *testing.T) {
	key := "aaa:bbb"
	assert.True(t, IsParticipant(key, "aaa"))
	assert.True(t, IsParticipant(key, "bbb"))
	assert.False(t, IsParticipant(key, "ccc"))
	assert.False(t, IsParticipant("not-a-key", "aaa"))
}

func TestValidatePairing(t *testing.T) {
	client := Participant{ID: uuid.New(), Role: RoleClient}
	pro := Participant{ID: uuid.New(), Role: RoleProfessional}

	assert.NoError(t, ValidatePairing(client, pro))
	assert.NoError(t, ValidatePairing(pro, client))

	otherClient := Participant{ID: uuid.New(), Role: RoleClient}
	assert.ErrorIs(t, ValidatePairing(client, otherClient), chat_errors.ErrInvalidPairing)

	assert.ErrorIs(t, ValidatePairing(client, client), chat_errors.ErrInvalidPairing)

	admin := Participant{ID: uuid.New(), Role: "admin"}
	assert.ErrorIs(t, ValidatePairing(client, admin), chat_errors.ErrInvalidPairing)
}
