package auth_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedforward/feedforward/modules/auth"
	"github.com/feedforward/feedforward/pkg/email"
	"github.com/feedforward/feedforward/pkg/token"
	"github.com/feedforward/feedforward/pkg/validator"
)

// capturingSender records outbound emails and can be made to fail.
type capturingSender struct {
	mu   sync.Mutex
	sent []email.SendParams
	err  error
}

func (c *capturingSender) Send(ctx context.Context, params email.SendParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, params)
	return nil
}

func (c *capturingSender) last(t *testing.T) email.SendParams {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent)
	return c.sent[len(c.sent)-1]
}

var resetSecretRegex = regexp.MustCompile(`token=([0-9a-f]{64})`)

func testConfig() auth.Config {
	return auth.Config{
		AppBaseURL:           "http://localhost:8080",
		TokenSecret:          "test-secret-at-least-32-bytes-long!!",
		SessionTTL:           time.Hour,
		VerifyTokenTTL:       time.Hour,
		ResetTokenTTL:        10 * time.Minute,
		RequireVerifiedEmail: true,
		RequireLiveSession:   true,
		BcryptCost:           bcrypt.MinCost,
		CookieName:           "token",
	}
}

type testEnv struct {
	svc      *auth.Service
	users    *auth.MemoryUserStore
	sessions *auth.MemorySessionStore
	tokens   *token.Service
	mailer   *capturingSender
}

func newTestEnv(t *testing.T, cfg auth.Config) *testEnv {
	t.Helper()

	tokens, err := token.New(cfg.TokenSecret)
	require.NoError(t, err)

	env := &testEnv{
		users:    auth.NewMemoryUserStore(),
		sessions: auth.NewMemorySessionStore(),
		tokens:   tokens,
		mailer:   &capturingSender{},
	}
	env.svc = auth.NewService(cfg, env.users, env.sessions, tokens, env.mailer)
	return env
}

func register(t *testing.T, env *testEnv, username, emailAddr string) *auth.User {
	t.Helper()
	user, err := env.svc.Register(context.Background(), auth.RegisterParams{
		Name:     "Jo Doe",
		Username: username,
		Email:    emailAddr,
		Password: "correct horse",
	})
	require.NoError(t, err)
	return user
}

func registerVerified(t *testing.T, env *testEnv, username, emailAddr string) *auth.User {
	t.Helper()
	user := register(t, env, username, emailAddr)
	require.NoError(t, env.users.SetVerified(context.Background(), user.ID))
	return user
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates unverified user and sends verification email", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		user, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Name:     "Jo Doe",
			Username: "jodoe",
			Email:    "Jo.Doe@Example.COM",
			Password: "correct horse",
		})
		require.NoError(t, err)
		assert.False(t, user.IsVerified)
		assert.Equal(t, "jo.doe@example.com", user.Email)
		assert.NotEqual(t, "correct horse", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))

		sent := env.mailer.last(t)
		assert.Equal(t, "jo.doe@example.com", sent.To)
		assert.Contains(t, sent.BodyHTML, "/api/v1/auth/verify-email?token=")
	})

	t.Run("duplicate email names the field", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		register(t, env, "first", "jo@example.com")

		_, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Name:     "Other",
			Username: "second",
			Email:    "jo@example.com",
			Password: "correct horse",
		})
		var dup *auth.DuplicateFieldError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "email", dup.Field)
	})

	t.Run("duplicate username names the field", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		register(t, env, "jodoe", "first@example.com")

		_, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Name:     "Other",
			Username: "jodoe",
			Email:    "second@example.com",
			Password: "correct horse",
		})
		var dup *auth.DuplicateFieldError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "username", dup.Field)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		_, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Name:     "",
			Username: "no spaces allowed",
			Email:    "not-an-email",
			Password: "short",
		})
		require.Error(t, err)
		ve := validator.ExtractValidationErrors(err)
		require.NotNil(t, ve)
		assert.True(t, ve.Has("name"))
		assert.True(t, ve.Has("username"))
		assert.True(t, ve.Has("email"))
		assert.True(t, ve.Has("password"))
	})

	t.Run("email failure surfaces but keeps the account", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		env.mailer.err = errors.New("smtp down")

		_, err := env.svc.Register(context.Background(), auth.RegisterParams{
			Name:     "Jo Doe",
			Username: "jodoe",
			Email:    "jo@example.com",
			Password: "correct horse",
		})
		require.ErrorIs(t, err, auth.ErrEmailDeliveryFailed)

		stored, err := env.users.FindByEmail(context.Background(), "jo@example.com")
		require.NoError(t, err)
		assert.False(t, stored.IsVerified)
	})
}

func TestService_VerifyEmail(t *testing.T) {
	t.Parallel()

	t.Run("marks the user verified once", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		user := register(t, env, "jodoe", "jo@example.com")

		tok, err := env.tokens.Issue(user.ID, token.PurposeEmailVerify, time.Hour)
		require.NoError(t, err)

		require.NoError(t, env.svc.VerifyEmail(context.Background(), tok))

		stored, err := env.users.FindByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsVerified)

		assert.ErrorIs(t, env.svc.VerifyEmail(context.Background(), tok), auth.ErrAlreadyVerified)
	})

	t.Run("rejects tampered and expired tokens", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		user := register(t, env, "jodoe", "jo@example.com")

		tok, err := env.tokens.Issue(user.ID, token.PurposeEmailVerify, time.Hour)
		require.NoError(t, err)
		assert.ErrorIs(t, env.svc.VerifyEmail(context.Background(), tok+"x"), auth.ErrTokenInvalid)

		expired, err := env.tokens.Issue(user.ID, token.PurposeEmailVerify, -time.Minute)
		require.NoError(t, err)
		assert.ErrorIs(t, env.svc.VerifyEmail(context.Background(), expired), auth.ErrTokenExpired)
	})

	t.Run("rejects tokens of another purpose", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		user := register(t, env, "jodoe", "jo@example.com")

		sessionTok, err := env.tokens.Issue(user.ID, token.PurposeSession, time.Hour)
		require.NoError(t, err)
		assert.ErrorIs(t, env.svc.VerifyEmail(context.Background(), sessionTok), auth.ErrTokenInvalid)
	})

	t.Run("rejects tokens for unknown users", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		tok, err := env.tokens.Issue("ghost", token.PurposeEmailVerify, time.Hour)
		require.NoError(t, err)
		assert.ErrorIs(t, env.svc.VerifyEmail(context.Background(), tok), auth.ErrTokenInvalid)
	})
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	t.Run("unknown user and wrong password look identical", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		registerVerified(t, env, "jodoe", "jo@example.com")

		_, errUnknown := env.svc.Login(context.Background(), "nobody@example.com", "correct horse")
		_, errWrong := env.svc.Login(context.Background(), "jo@example.com", "wrong password")
		assert.ErrorIs(t, errUnknown, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, errWrong, auth.ErrInvalidCredentials)
	})

	t.Run("unverified user is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		register(t, env, "jodoe", "jo@example.com")

		_, err := env.svc.Login(context.Background(), "jo@example.com", "correct horse")
		assert.ErrorIs(t, err, auth.ErrEmailNotVerified)
	})

	t.Run("verification requirement can be disabled", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.RequireVerifiedEmail = false
		env := newTestEnv(t, cfg)
		register(t, env, "jodoe", "jo@example.com")

		_, err := env.svc.Login(context.Background(), "jo@example.com", "correct horse")
		assert.NoError(t, err)
	})

	t.Run("logs in by email or username and records a session", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		user := registerVerified(t, env, "jodoe", "jo@example.com")

		byEmail, err := env.svc.Login(context.Background(), "JO@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.User.ID)
		assert.NotEmpty(t, byEmail.Token)
		assert.True(t, byEmail.ExpiresAt.After(time.Now()))

		byUsername, err := env.svc.Login(context.Background(), "jodoe", "correct horse")
		require.NoError(t, err)
		assert.NotEqual(t, byEmail.Token, byUsername.Token)

		session, err := env.sessions.FindByToken(context.Background(), byEmail.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, session.UserID)
	})
}

func TestService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("resolves a live session token", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		user := registerVerified(t, env, "jodoe", "jo@example.com")

		result, err := env.svc.Login(context.Background(), "jodoe", "correct horse")
		require.NoError(t, err)

		got, err := env.svc.Authenticate(context.Background(), result.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("rejects garbage and empty tokens", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		_, err := env.svc.Authenticate(context.Background(), "")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)

		_, err = env.svc.Authenticate(context.Background(), "not.a.jwt")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("rejects tokens after logout", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		registerVerified(t, env, "jodoe", "jo@example.com")

		result, err := env.svc.Login(context.Background(), "jodoe", "correct horse")
		require.NoError(t, err)

		require.NoError(t, env.svc.Logout(context.Background(), result.Token))
		require.NoError(t, env.svc.Logout(context.Background(), result.Token))

		_, err = env.svc.Authenticate(context.Background(), result.Token)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("live session check can be disabled", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.RequireLiveSession = false
		env := newTestEnv(t, cfg)
		user := registerVerified(t, env, "jodoe", "jo@example.com")

		tok, err := env.tokens.Issue(user.ID, token.PurposeSession, time.Hour)
		require.NoError(t, err)

		got, err := env.svc.Authenticate(context.Background(), tok)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})
}

func TestService_ForgotPassword(t *testing.T) {
	t.Parallel()

	t.Run("unknown email is reported", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		err := env.svc.ForgotPassword(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("stores only the secret hash and emails the plaintext", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		user := registerVerified(t, env, "jodoe", "jo@example.com")

		require.NoError(t, env.svc.ForgotPassword(context.Background(), "jo@example.com"))

		matches := resetSecretRegex.FindStringSubmatch(env.mailer.last(t).BodyHTML)
		require.Len(t, matches, 2)
		secret := matches[1]

		stored, err := env.users.FindByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ResetTokenHash)
		assert.NotEqual(t, secret, stored.ResetTokenHash)
		require.NotNil(t, stored.ResetTokenExpiresAt)
		assert.True(t, stored.ResetTokenExpiresAt.After(time.Now()))
	})

	t.Run("a new request invalidates the previous secret", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		registerVerified(t, env, "jodoe", "jo@example.com")

		require.NoError(t, env.svc.ForgotPassword(context.Background(), "jo@example.com"))
		first := resetSecretRegex.FindStringSubmatch(env.mailer.last(t).BodyHTML)[1]

		require.NoError(t, env.svc.ForgotPassword(context.Background(), "jo@example.com"))

		err := env.svc.ResetPassword(context.Background(), first, "brand new password")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}

func TestService_ResetPassword(t *testing.T) {
	t.Parallel()

	requestReset := func(t *testing.T, env *testEnv) string {
		t.Helper()
		require.NoError(t, env.svc.ForgotPassword(context.Background(), "jo@example.com"))
		matches := resetSecretRegex.FindStringSubmatch(env.mailer.last(t).BodyHTML)
		require.Len(t, matches, 2)
		return matches[1]
	}

	t.Run("replaces the password and revokes all sessions", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		registerVerified(t, env, "jodoe", "jo@example.com")

		login, err := env.svc.Login(context.Background(), "jodoe", "correct horse")
		require.NoError(t, err)

		secret := requestReset(t, env)
		require.NoError(t, env.svc.ResetPassword(context.Background(), secret, "brand new password"))

		_, err = env.svc.Login(context.Background(), "jodoe", "correct horse")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		_, err = env.svc.Login(context.Background(), "jodoe", "brand new password")
		assert.NoError(t, err)

		_, err = env.svc.Authenticate(context.Background(), login.Token)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("secret is single use", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		registerVerified(t, env, "jodoe", "jo@example.com")

		secret := requestReset(t, env)
		require.NoError(t, env.svc.ResetPassword(context.Background(), secret, "brand new password"))

		err := env.svc.ResetPassword(context.Background(), secret, "another password")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("expired secret is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.ResetTokenTTL = -time.Minute
		env := newTestEnv(t, cfg)
		registerVerified(t, env, "jodoe", "jo@example.com")

		secret := requestReset(t, env)
		err := env.svc.ResetPassword(context.Background(), secret, "brand new password")
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("unknown secret is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())

		err := env.svc.ResetPassword(context.Background(), "deadbeef", "brand new password")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("weak password is rejected before touching the token", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, testConfig())
		registerVerified(t, env, "jodoe", "jo@example.com")

		secret := requestReset(t, env)
		err := env.svc.ResetPassword(context.Background(), secret, "short")
		assert.True(t, validator.IsValidationError(err))

		require.NoError(t, env.svc.ResetPassword(context.Background(), secret, "brand new password"))
	})
}
