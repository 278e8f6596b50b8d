// Package auth issues and validates the connect-time credential. Account
// provisioning lives in the marketplace platform; this core only needs to
// know who is on the other end of a connection and which role they hold.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	chat_errors "craftlink-chat/pkg/errors"
)

type AccessClaims struct {
	UserID      string `json:"sub"`
	DisplayName string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Mint signs an access token. Used by tooling and tests; the production
// token issuer is the platform's auth service sharing the same secret.
func (s *TokenService) Mint(userID uuid.UUID, displayName, role string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:      userID.String(),
		DisplayName: displayName,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates a token and returns its claims. Any failure maps to
// ErrUnauthorized: an invalid credential terminates the connection attempt
// and is not retryable.
func (s *TokenService) Parse(tokenString string) (*AccessClaims, error) {
	if tokenString == "" {
		return nil, chat_errors.ErrUnauthorized
	}

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, chat_errors.ErrUnauthorized
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, chat_errors.ErrUnauthorized
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, chat_errors.ErrUnauthorized
	}
	return claims, nil
}
