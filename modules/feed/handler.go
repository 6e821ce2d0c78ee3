package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/feedforward/feedforward/modules/auth"
	"github.com/feedforward/feedforward/pkg/binder"
	"github.com/feedforward/feedforward/pkg/logger"
	"github.com/feedforward/feedforward/pkg/respond"
	"github.com/feedforward/feedforward/pkg/storage"
	"github.com/feedforward/feedforward/pkg/validator"
)

// maxAvatarBytes caps avatar uploads at 5MB.
const maxAvatarBytes = 5 << 20

// AvatarUpdater persists a user's new avatar URL. The auth service
// satisfies it.
type AvatarUpdater interface {
	UpdateAvatar(ctx context.Context, userID, avatarURL string) error
}

// Handler exposes the feed endpoints. All routes expect the auth gate to
// have attached a user to the request context.
type Handler struct {
	svc     *Service
	avatars AvatarUpdater
	media   storage.Storage
	log     *slog.Logger
}

// NewHandler creates the feed HTTP handler.
func NewHandler(svc *Service, avatars AvatarUpdater, media storage.Storage, log *slog.Logger) *Handler {
	return &Handler{svc: svc, avatars: avatars, media: media, log: log}
}

// Routes mounts the feed endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Post("/", h.createPost)
		r.Get("/", h.listPosts)
		r.Get("/{id}", h.getPost)
		r.Delete("/{id}", h.deletePost)

		r.Post("/{id}/comments", h.addComment)
		r.Get("/{id}/comments", h.listComments)

		r.Put("/{id}/like", h.likePost)
		r.Delete("/{id}/like", h.unlikePost)
	})

	r.Delete("/comments/{id}", h.deleteComment)

	r.Route("/users", func(r chi.Router) {
		r.Put("/me/avatar", h.uploadAvatar)
		r.Put("/{id}/follow", h.followUser)
		r.Delete("/{id}/follow", h.unfollowUser)
		r.Get("/{id}/followers", h.listFollowers)
		r.Get("/{id}/following", h.listFollowing)
	})
}

type createPostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Media   []string `json:"media"`
	Tags    []string `json:"tags"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var req createPostRequest
	if err := binder.JSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	post, err := h.svc.CreatePost(r.Context(), user.ID, CreatePostParams{
		Title:   req.Title,
		Content: req.Content,
		Media:   req.Media,
		Tags:    req.Tags,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.Success(w, http.StatusCreated, "Post created.", map[string]any{"post": post})
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "", map[string]any{"post": view})
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ListPostsFilter{
		UserID: query.Get("user"),
		Tag:    query.Get("tag"),
	}
	if limit, err := strconv.ParseInt(query.Get("limit"), 10, 64); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}
	if offset, err := strconv.ParseInt(query.Get("offset"), 10, 64); err == nil && offset > 0 {
		filter.Offset = offset
	}

	views, err := h.svc.ListPosts(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "", map[string]any{"posts": views})
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	if err := h.svc.DeletePost(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "Post deleted.", nil)
}

type addCommentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	var req addCommentRequest
	if err := binder.JSON(r, &req); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	comment, err := h.svc.AddComment(r.Context(), user.ID, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusCreated, "Comment added.", map[string]any{"comment": comment})
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "", map[string]any{"comments": comments})
}

func (h *Handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	if err := h.svc.DeleteComment(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "Comment deleted.", nil)
}

func (h *Handler) likePost(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	count, err := h.svc.LikePost(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "Post liked.", map[string]any{"like_count": count})
}

func (h *Handler) unlikePost(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	count, err := h.svc.UnlikePost(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "Like removed.", map[string]any{"like_count": count})
}

func (h *Handler) followUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	if err := h.svc.FollowUser(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "Now following.", nil)
}

func (h *Handler) unfollowUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	if err := h.svc.UnfollowUser(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "Unfollowed.", nil)
}

func (h *Handler) listFollowers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Followers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "", map[string]any{"users": users})
}

func (h *Handler) listFollowing(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Following(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusOK, "", map[string]any{"users": users})
}

func (h *Handler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Fail(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Invalid multipart form.")
		return
	}

	_, fh, err := r.FormFile("avatar")
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "Avatar file is required.")
		return
	}

	if err := storage.ValidateSize(fh, maxAvatarBytes); err != nil {
		respond.Fail(w, http.StatusBadRequest, "Avatar must be smaller than 5MB.")
		return
	}
	if !storage.IsImage(fh) {
		respond.Fail(w, http.StatusBadRequest, "Avatar must be a JPEG, PNG, GIF, or WebP image.")
		return
	}

	ext := strings.ToLower(storage.GetExtension(fh))
	if ext == "" {
		ext = ".png"
	}
	path := "avatars/" + user.ID + ext

	file, err := h.media.Save(r.Context(), fh, path)
	if err != nil {
		h.log.ErrorContext(r.Context(), "avatar upload failed",
			logger.UserID(user.ID),
			logger.Error(err),
			logger.Component("feed"),
		)
		respond.Fail(w, http.StatusInternalServerError, "Failed to store avatar.")
		return
	}

	if err := h.avatars.UpdateAvatar(r.Context(), user.ID, file.URL); err != nil {
		h.writeError(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Avatar updated.", map[string]any{"avatar": file.URL})
}

// writeError maps service errors onto the response envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case validator.IsValidationError(err):
		ve := validator.ExtractValidationErrors(err)
		respond.Fail(w, http.StatusBadRequest, ve[0].Message)
	case errors.Is(err, ErrSelfFollow):
		respond.Fail(w, http.StatusBadRequest, "You cannot follow yourself.")
	case errors.Is(err, ErrNotOwner):
		respond.Fail(w, http.StatusForbidden, "You can only modify your own content.")
	case errors.Is(err, ErrPostNotFound):
		respond.Fail(w, http.StatusNotFound, "Post not found.")
	case errors.Is(err, ErrCommentNotFound):
		respond.Fail(w, http.StatusNotFound, "Comment not found.")
	case errors.Is(err, ErrUserNotFound):
		respond.Fail(w, http.StatusNotFound, "User not found.")
	default:
		h.log.ErrorContext(r.Context(), "unhandled feed error",
			logger.Error(err),
			logger.Component("feed"),
		)
		respond.Fail(w, http.StatusInternalServerError, "Something went wrong.")
	}
}
