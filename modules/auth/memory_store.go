package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryUserStore is an in-memory UserStore for tests and development. It
// mirrors the Mongo store's semantics, including duplicate detection and
// conditional reset token consumption.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*User)}
}

func (s *MemoryUserStore) Create(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return &DuplicateFieldError{Field: "email"}
		}
		if existing.Username == user.Username {
			return &DuplicateFieldError{Field: "username"}
		}
	}

	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.find(func(u *User) bool { return u.Email == email })
}

func (s *MemoryUserStore) FindByEmailOrUsername(ctx context.Context, identifier string) (*User, error) {
	return s.find(func(u *User) bool { return u.Email == identifier || u.Username == identifier })
}

func (s *MemoryUserStore) FindByResetTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	if tokenHash == "" {
		return nil, ErrUserNotFound
	}
	return s.find(func(u *User) bool { return u.ResetTokenHash == tokenHash })
}

func (s *MemoryUserStore) SetVerified(ctx context.Context, id string) error {
	return s.update(id, func(u *User) {
		u.IsVerified = true
	})
}

func (s *MemoryUserStore) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.update(id, func(u *User) {
		u.ResetTokenHash = tokenHash
		u.ResetTokenExpiresAt = &expiresAt
	})
}

func (s *MemoryUserStore) ConsumeResetToken(ctx context.Context, id, tokenHash, newPasswordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if user.ResetTokenHash != tokenHash ||
		user.ResetTokenExpiresAt == nil ||
		!user.ResetTokenExpiresAt.After(time.Now()) {
		return ErrUserNotFound
	}

	user.PasswordHash = newPasswordHash
	user.ResetTokenHash = ""
	user.ResetTokenExpiresAt = nil
	user.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryUserStore) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return s.update(id, func(u *User) {
		u.Avatar = avatarURL
	})
}

func (s *MemoryUserStore) find(match func(*User) bool) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if match(user) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) update(id string, apply func(*User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return ErrUserNotFound
	}
	apply(user)
	user.UpdatedAt = time.Now()
	return nil
}

// MemorySessionStore is an in-memory SessionStore for tests and
// development. Expired sessions are dropped lazily on read.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by token
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (s *MemorySessionStore) Create(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *session
	s.sessions[session.Token] = &clone
	return nil
}

func (s *MemorySessionStore) FindByToken(ctx context.Context, tok string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[tok]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !session.ExpiresAt.After(time.Now()) {
		delete(s.sessions, tok)
		return nil, ErrSessionNotFound
	}
	clone := *session
	return &clone, nil
}

func (s *MemorySessionStore) DeleteByToken(ctx context.Context, tok string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tok)
	return nil
}

func (s *MemorySessionStore) DeleteByUserID(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tok, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, tok)
		}
	}
	return nil
}

func (s *MemorySessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var deleted int64
	for tok, session := range s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.sessions, tok)
			deleted++
		}
	}
	return deleted, nil
}
