package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feedforward/feedforward/pkg/binder"
	"github.com/feedforward/feedforward/pkg/cookie"
	"github.com/feedforward/feedforward/pkg/logger"
	"github.com/feedforward/feedforward/pkg/respond"
	"github.com/feedforward/feedforward/pkg/validator"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	svc     *Service
	cookies *cookie.Manager
	cfg     Config
	log     *slog.Logger
}

// NewHandler creates the auth HTTP handler.
func NewHandler(svc *Service, cookies *cookie.Manager, cfg Config, log *slog.Logger) *Handler {
	return &Handler{svc: svc, cookies: cookies, cfg: cfg, log: log}
}

// Routes mounts the auth endpoints on r. Logout requires the gate; the rest
// are public.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Get("/verify-email", h.verifyEmail)
	r.Post("/forgot-password", h.forgotPassword)
	r.Post("/reset-password", h.resetPassword)

	r.Group(func(r chi.Router) {
		r.Use(Gate(h.svc, h.cookies, h.cfg.CookieName))
		r.Post("/logout", h.logout)
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := binder.JSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.svc.Register(r.Context(), RegisterParams{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.Success(w, http.StatusCreated,
		"User registered successfully. Please verify your email.",
		map[string]any{"user": user.Public()})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := binder.JSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}

	result, err := h.svc.Login(r.Context(), identifier, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cookies.Set(w, h.cfg.CookieName, result.Token,
		cookie.WithMaxAge(int(h.cfg.SessionTTL.Seconds())),
		cookie.WithSecure(h.cfg.SecureCookies),
	)

	respond.Success(w, http.StatusOK, "Logged in successfully.", map[string]any{
		"token": result.Token,
		"user":  result.User.Public(),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	tok, _ := TokenFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), tok); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.cookies.Delete(w, h.cfg.CookieName)
	respond.Success(w, http.StatusOK, "Logged out successfully.", nil)
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		respond.Fail(w, http.StatusBadRequest, "Verification token is required.")
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), tok); err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Email verified successfully.", nil)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := binder.JSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Password reset email sent.", nil)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := binder.JSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Password has been reset. Please log in again.", nil)
}

// writeError maps service errors onto the response envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *DuplicateFieldError
	switch {
	case validator.IsValidationError(err):
		ve := validator.ExtractValidationErrors(err)
		respond.Fail(w, http.StatusBadRequest, ve[0].Message)
	case errors.As(err, &dup):
		respond.Fail(w, http.StatusBadRequest, fmt.Sprintf("An account with this %s already exists.", dup.Field))
	case errors.Is(err, ErrInvalidCredentials):
		respond.Fail(w, http.StatusBadRequest, "Invalid credentials.")
	case errors.Is(err, ErrEmailNotVerified):
		respond.Fail(w, http.StatusUnauthorized, "Email not verified. Please verify your email first.")
	case errors.Is(err, ErrAlreadyVerified):
		respond.Fail(w, http.StatusBadRequest, "Email is already verified.")
	case errors.Is(err, ErrTokenExpired):
		respond.Fail(w, http.StatusBadRequest, "Token has expired. Please request a new one.")
	case errors.Is(err, ErrTokenInvalid):
		respond.Fail(w, http.StatusBadRequest, "Invalid or expired token.")
	case errors.Is(err, ErrUserNotFound):
		respond.Fail(w, http.StatusNotFound, "User not found.")
	case errors.Is(err, ErrUnauthenticated):
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
	case errors.Is(err, ErrEmailDeliveryFailed):
		respond.Fail(w, http.StatusServiceUnavailable, "Could not send email. Please try again later.")
	default:
		h.log.ErrorContext(r.Context(), "unhandled auth error",
			logger.Error(err),
			logger.Component("auth"),
		)
		respond.Fail(w, http.StatusInternalServerError, "Something went wrong.")
	}
}
