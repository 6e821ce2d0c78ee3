package feed_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/feedforward/feedforward/modules/auth"
	"github.com/feedforward/feedforward/modules/feed"
	"github.com/feedforward/feedforward/pkg/cookie"
	"github.com/feedforward/feedforward/pkg/email"
	"github.com/feedforward/feedforward/pkg/respond"
	"github.com/feedforward/feedforward/pkg/storage"
	"github.com/feedforward/feedforward/pkg/token"
)

type nullSender struct{}

func (nullSender) Send(ctx context.Context, params email.SendParams) error { return nil }

type apiEnv struct {
	srv     *httptest.Server
	authSvc *auth.Service
	users   *auth.MemoryUserStore
}

// newAPIEnv assembles the full gated API the way the server binary does.
func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	cfg := auth.Config{
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

	tokens, err := token.New(cfg.TokenSecret)
	require.NoError(t, err)

	users := auth.NewMemoryUserStore()
	sessions := auth.NewMemorySessionStore()
	authSvc := auth.NewService(cfg, users, sessions, tokens, nullSender{})

	feedSvc := feed.NewService(
		feed.NewMemoryPostStore(),
		feed.NewMemoryCommentStore(),
		feed.NewMemoryLikeStore(),
		feed.NewMemoryFollowStore(),
		users,
	)

	media, err := storage.NewLocalStorage(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := feed.NewHandler(feedSvc, authSvc, media, log)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Gate(authSvc, cookie.New(), cfg.CookieName))
			handler.Routes(r)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &apiEnv{srv: srv, authSvc: authSvc, users: users}
}

// loginAs registers a verified user and returns their bearer token.
func (e *apiEnv) loginAs(t *testing.T, username string) (*auth.User, string) {
	t.Helper()

	user, err := e.authSvc.Register(context.Background(), auth.RegisterParams{
		Name:     "User " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NoError(t, e.users.SetVerified(context.Background(), user.ID))

	result, err := e.authSvc.Login(context.Background(), username, "correct horse")
	require.NoError(t, err)
	return user, result.Token
}

func (e *apiEnv) do(t *testing.T, method, path, tok string, body any) (*http.Response, respond.Envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope respond.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestHandler_PostLifecycle(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	_, authorTok := env.loginAs(t, "author")
	_, readerTok := env.loginAs(t, "reader")

	// Unauthenticated requests are rejected at the gate.
	resp, _ := env.do(t, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Create.
	resp, envelope := env.do(t, http.MethodPost, "/api/v1/posts", authorTok, map[string]any{
		"title":   "Hello",
		"content": "First post",
		"tags":    []string{"go"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := envelope.Data.(map[string]any)
	post := data["post"].(map[string]any)
	postID := post["id"].(string)

	// Read with counts.
	resp, envelope = env.do(t, http.MethodGet, "/api/v1/posts/"+postID, readerTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := envelope.Data.(map[string]any)["post"].(map[string]any)
	assert.Equal(t, float64(0), view["like_count"])

	// Comment and like.
	resp, _ = env.do(t, http.MethodPost, "/api/v1/posts/"+postID+"/comments", readerTok, map[string]string{"text": "nice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, envelope = env.do(t, http.MethodPut, "/api/v1/posts/"+postID+"/like", readerTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), envelope.Data.(map[string]any)["like_count"])

	// Idempotent like.
	resp, envelope = env.do(t, http.MethodPut, "/api/v1/posts/"+postID+"/like", readerTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), envelope.Data.(map[string]any)["like_count"])

	// Non-owner delete is forbidden.
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/posts/"+postID, readerTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Owner delete succeeds.
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/posts/"+postID, authorTok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/posts/"+postID, readerTok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_FollowEndpoints(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	alice, aliceTok := env.loginAs(t, "alice")
	bob, _ := env.loginAs(t, "bob")

	resp, _ := env.do(t, http.MethodPut, "/api/v1/users/"+bob.ID+"/follow", aliceTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Self-follow rejected.
	resp, _ = env.do(t, http.MethodPut, "/api/v1/users/"+alice.ID+"/follow", aliceTok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, envelope := env.do(t, http.MethodGet, "/api/v1/users/"+bob.ID+"/followers", aliceTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	followers := envelope.Data.(map[string]any)["users"].([]any)
	require.Len(t, followers, 1)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/users/"+bob.ID+"/follow", aliceTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, envelope = env.do(t, http.MethodGet, "/api/v1/users/"+bob.ID+"/followers", aliceTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	followers = envelope.Data.(map[string]any)["users"].([]any)
	assert.Len(t, followers, 0)
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func TestHandler_AvatarUpload(t *testing.T) {
	t.Parallel()

	env := newAPIEnv(t)
	user, tok := env.loginAs(t, "avatarist")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPut, env.srv.URL+"/api/v1/users/me/avatar", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var envelope respond.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	avatarURL := envelope.Data.(map[string]any)["avatar"].(string)
	assert.Contains(t, avatarURL, "/uploads/avatars/"+user.ID)

	stored, err := env.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, avatarURL, stored.Avatar)
}
