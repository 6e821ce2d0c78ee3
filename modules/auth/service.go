// Package auth implements account registration with email verification,
// credential login with server-side sessions, and password recovery with
// single-use reset links.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedforward/feedforward/pkg/email"
	"github.com/feedforward/feedforward/pkg/logger"
	"github.com/feedforward/feedforward/pkg/sanitizer"
	"github.com/feedforward/feedforward/pkg/token"
	"github.com/feedforward/feedforward/pkg/validator"
)

// Service implements the authentication state machine over the user and
// session stores.
type Service struct {
	cfg      Config
	users    UserStore
	sessions SessionStore
	tokens   *token.Service
	mailer   email.Sender
	log      *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// NewService creates the authentication service.
func NewService(cfg Config, users UserStore, sessions SessionStore, tokens *token.Service, mailer email.Sender, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams is the input to Register.
type RegisterParams struct {
	Name     string
	Username string
	Email    string
	Password string
}

// Register creates an unverified account and sends the verification email.
// The account stays created even when email delivery fails, so a later
// resend can complete verification.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Username = strings.TrimSpace(params.Username)
	params.Email = sanitizer.NormalizeEmail(params.Email)

	if err := validator.Apply(
		validator.Required("name", params.Name),
		validator.MaxLen("name", params.Name, 50),
		validator.Required("username", params.Username),
		validator.MinLen("username", params.Username, 3),
		validator.MaxLen("username", params.Username, 30),
		validator.ValidUsername("username", params.Username),
		validator.ValidEmail("email", params.Email),
		validator.MinLen("password", params.Password, 8),
		validator.MaxLen("password", params.Password, 128),
	); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:           uuid.NewString(),
		Name:         params.Name,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: string(hash),
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	verifyToken, err := s.tokens.Issue(user.ID, token.PurposeEmailVerify, s.cfg.VerifyTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	if err := s.sendVerificationEmail(ctx, user, verifyToken); err != nil {
		s.log.ErrorContext(ctx, "verification email delivery failed",
			logger.UserID(user.ID),
			logger.Email(user.Email),
			logger.Error(err),
			logger.Component("auth"),
		)
		return nil, errors.Join(ErrEmailDeliveryFailed, err)
	}

	s.log.InfoContext(ctx, "user registered",
		logger.UserID(user.ID),
		logger.Component("auth"),
	)

	return user, nil
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// Login authenticates by email or username plus password and issues a new
// session. Unknown identifiers and wrong passwords are indistinguishable to
// the caller.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if strings.Contains(identifier, "@") {
		identifier = sanitizer.NormalizeEmail(identifier)
	} else {
		identifier = strings.TrimSpace(identifier)
	}

	user, err := s.users.FindByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.cfg.RequireVerifiedEmail && !user.IsVerified {
		return nil, ErrEmailNotVerified
	}

	sessionToken, err := s.tokens.Issue(user.ID, token.PurposeSession, s.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.SessionTTL)
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     sessionToken,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.log.InfoContext(ctx, "user logged in",
		logger.UserID(user.ID),
		logger.SessionID(session.ID),
		logger.Component("auth"),
	)

	return &LoginResult{Token: sessionToken, ExpiresAt: expiresAt, User: user}, nil
}

// Logout revokes the session for the given token. Revoking an unknown or
// already-revoked token is not an error.
func (s *Service) Logout(ctx context.Context, tok string) error {
	if err := s.sessions.DeleteByToken(ctx, tok); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// VerifyEmail marks the account of a valid verification token as verified.
func (s *Service) VerifyEmail(ctx context.Context, tok string) error {
	userID, err := s.tokens.Verify(tok, token.PurposeEmailVerify)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	if err := s.users.SetVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	s.log.InfoContext(ctx, "email verified",
		logger.UserID(user.ID),
		logger.Component("auth"),
	)
	return nil
}

// ForgotPassword issues a single-use password reset secret and emails it as
// a link. Only the SHA-256 hash of the secret is stored; issuing a new
// secret invalidates the previous one.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("failed to generate reset secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, hashResetSecret(secret), expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.sendPasswordResetEmail(ctx, user, secret); err != nil {
		s.log.ErrorContext(ctx, "reset email delivery failed",
			logger.UserID(user.ID),
			logger.Error(err),
			logger.Component("auth"),
		)
		return errors.Join(ErrEmailDeliveryFailed, err)
	}

	s.log.InfoContext(ctx, "password reset requested",
		logger.UserID(user.ID),
		logger.Component("auth"),
	)
	return nil
}

// ResetPassword consumes a reset secret, sets the new password, and revokes
// every session of the user.
func (s *Service) ResetPassword(ctx context.Context, secret, newPassword string) error {
	if err := validator.Apply(
		validator.MinLen("password", newPassword, 8),
		validator.MaxLen("password", newPassword, 128),
	); err != nil {
		return err
	}

	tokenHash := hashResetSecret(secret)
	user, err := s.users.FindByResetTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	if user.ResetTokenExpiresAt == nil || !user.ResetTokenExpiresAt.After(time.Now()) {
		return ErrTokenExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.ConsumeResetToken(ctx, user.ID, tokenHash, string(hash)); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	if err := s.sessions.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	s.log.InfoContext(ctx, "password reset completed",
		logger.UserID(user.ID),
		logger.Component("auth"),
	)
	return nil
}

// Authenticate resolves a bearer token to its user, enforcing the live
// session policy. Every failure is ErrUnauthenticated so callers cannot
// probe for the cause.
func (s *Service) Authenticate(ctx context.Context, tok string) (*User, error) {
	if tok == "" {
		return nil, ErrUnauthenticated
	}

	userID, err := s.tokens.Verify(tok, token.PurposeSession)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	if s.cfg.RequireLiveSession {
		if _, err := s.sessions.FindByToken(ctx, tok); err != nil {
			return nil, ErrUnauthenticated
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return user, nil
}

// UpdateAvatar stores the user's new avatar URL.
func (s *Service) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	if err := s.users.UpdateAvatar(ctx, userID, avatarURL); err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return nil
}

func hashResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
