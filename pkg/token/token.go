// Package token issues and verifies signed, expiring tokens carrying a
// subject identifier. Tokens are HS256 JWTs; the same codec backs email
// verification links and session bearer credentials, distinguished by a
// purpose claim so one cannot be replayed as the other.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purposes bound into issued tokens.
const (
	PurposeEmailVerify = "email_verify"
	PurposeSession     = "session"
)

// Claims carries the registered JWT claims plus the token purpose.
type Claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

// Service signs and verifies tokens with a single HMAC secret.
type Service struct {
	secret []byte
}

// New creates a token service. The secret should be at least 32 bytes.
func New(secret string) (*Service, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Service{secret: []byte(secret)}, nil
}

// Issue creates a signed token for the subject with an absolute expiry of
// now + ttl.
func (s *Service) Issue(subject, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the token signature, purpose, and expiry, returning the
// subject. A bad signature or malformed token yields ErrTokenInvalid before
// expiry is ever inspected; a well-formed, correctly signed token past its
// expiry yields ErrTokenExpired.
func (s *Service) Verify(tokenString, purpose string) (string, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	if claims.Purpose != purpose || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
