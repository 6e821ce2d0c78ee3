package auth

import (
	"context"
	"time"
)

// UserStore persists user accounts.
type UserStore interface {
	// Create inserts a new user. A unique index violation on email or
	// username returns *DuplicateFieldError naming the field.
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByEmailOrUsername resolves a login identifier against either
	// unique field.
	FindByEmailOrUsername(ctx context.Context, identifier string) (*User, error)
	SetVerified(ctx context.Context, id string) error
	// SetResetToken stores the hash of a password reset secret with its
	// expiry, replacing any previous one.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*User, error)
	// ConsumeResetToken atomically replaces the password hash and clears the
	// reset fields, conditional on the stored hash still matching and being
	// unexpired. Returns ErrUserNotFound when the condition no longer holds.
	ConsumeResetToken(ctx context.Context, id, tokenHash, newPasswordHash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
}

// SessionStore persists issued sessions.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	// FindByToken returns the live session for token. Expired sessions are
	// reported as ErrSessionNotFound.
	FindByToken(ctx context.Context, tok string) (*Session, error)
	// DeleteByToken removes the session for token. Deleting a missing
	// session is not an error.
	DeleteByToken(ctx context.Context, tok string) error
	// DeleteByUserID removes all sessions of a user, used when a password
	// reset revokes every device.
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
