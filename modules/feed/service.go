// Package feed implements the social surface: posts, comments, likes, and
// follow relationships.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feedforward/feedforward/modules/auth"
	"github.com/feedforward/feedforward/pkg/logger"
	"github.com/feedforward/feedforward/pkg/sanitizer"
	"github.com/feedforward/feedforward/pkg/validator"
)

// UserDirectory resolves user IDs to accounts. The auth user store
// satisfies it.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*auth.User, error)
}

// Service implements feed operations over the stores.
type Service struct {
	posts    PostStore
	comments CommentStore
	likes    LikeStore
	follows  FollowStore
	users    UserDirectory
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

// NewService creates the feed service.
func NewService(posts PostStore, comments CommentStore, likes LikeStore, follows FollowStore, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		posts:    posts,
		comments: comments,
		likes:    likes,
		follows:  follows,
		users:    users,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePostParams is the input to CreatePost.
type CreatePostParams struct {
	Title   string
	Content string
	Media   []string
	Tags    []string
}

// CreatePost validates and stores a new post for userID.
func (s *Service) CreatePost(ctx context.Context, userID string, params CreatePostParams) (*Post, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Content = strings.TrimSpace(params.Content)
	params.Media = sanitizer.TrimStrings(params.Media)
	params.Tags = normalizeTags(params.Tags)

	rules := []validator.Rule{
		validator.Required("title", params.Title),
		validator.MaxLen("title", params.Title, 100),
		validator.Required("content", params.Content),
		validator.MaxLen("content", params.Content, 5000),
		validator.MaxLenSlice("media", params.Media, 10),
		validator.MaxLenSlice("tags", params.Tags, 20),
	}
	for _, url := range params.Media {
		rules = append(rules, validator.ValidImageURL("media", url))
	}
	if err := validator.Apply(rules...); err != nil {
		return nil, err
	}

	now := time.Now()
	post := &Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     params.Title,
		Content:   params.Content,
		Media:     params.Media,
		Tags:      params.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "post created",
		logger.PostID(post.ID),
		logger.UserID(userID),
		logger.Component("feed"),
	)
	return post, nil
}

// GetPost returns the post with its like and comment counts.
func (s *Service) GetPost(ctx context.Context, id string) (*PostView, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, post)
}

// ListPosts returns posts matching the filter with their counts.
func (s *Service) ListPosts(ctx context.Context, filter ListPostsFilter) ([]PostView, error) {
	posts, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, 0, len(posts))
	for i := range posts {
		view, err := s.view(ctx, &posts[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// DeletePost removes the post and its comments and likes. Only the author
// may delete.
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return ErrNotOwner
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	if err := s.comments.DeleteByPost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post comments: %w", err)
	}
	if err := s.likes.DeleteByPost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post likes: %w", err)
	}

	s.log.InfoContext(ctx, "post deleted",
		logger.PostID(postID),
		logger.UserID(userID),
		logger.Component("feed"),
	)
	return nil
}

// AddComment validates and stores a comment on the post.
func (s *Service) AddComment(ctx context.Context, userID, postID, text string) (*Comment, error) {
	text = strings.TrimSpace(text)
	if err := validator.Apply(
		validator.Required("text", text),
		validator.MaxLen("text", text, 500),
	); err != nil {
		return nil, err
	}

	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns a post's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

// DeleteComment removes a comment. Only the author may delete.
func (s *Service) DeleteComment(ctx context.Context, userID, commentID string) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return ErrNotOwner
	}
	return s.comments.Delete(ctx, commentID)
}

// LikePost records a like. Repeating the call is a no-op; the resulting
// count is returned either way.
func (s *Service) LikePost(ctx context.Context, userID, postID string) (int64, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return 0, err
	}

	like := &Like{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if _, err := s.likes.Like(ctx, like); err != nil {
		return 0, err
	}
	return s.likes.CountByPost(ctx, postID)
}

// UnlikePost removes a like. Repeating the call is a no-op.
func (s *Service) UnlikePost(ctx context.Context, userID, postID string) (int64, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return 0, err
	}
	if _, err := s.likes.Unlike(ctx, postID, userID); err != nil {
		return 0, err
	}
	return s.likes.CountByPost(ctx, postID)
}

// FollowUser creates a follow edge. Self-follows are rejected and the
// target must exist. Repeating the call is a no-op.
func (s *Service) FollowUser(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return ErrSelfFollow
	}
	if _, err := s.users.FindByID(ctx, followeeID); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	follow := &Follow{
		ID:         uuid.NewString(),
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  time.Now(),
	}
	if _, err := s.follows.Follow(ctx, follow); err != nil {
		return err
	}
	return nil
}

// UnfollowUser removes a follow edge. Repeating the call is a no-op.
func (s *Service) UnfollowUser(ctx context.Context, followerID, followeeID string) error {
	if _, err := s.follows.Unfollow(ctx, followerID, followeeID); err != nil {
		return err
	}
	return nil
}

// Followers returns the public profiles of users following userID.
func (s *Service) Followers(ctx context.Context, userID string) ([]auth.PublicUser, error) {
	ids, err := s.follows.Followers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveUsers(ctx, ids)
}

// Following returns the public profiles of users that userID follows.
func (s *Service) Following(ctx context.Context, userID string) ([]auth.PublicUser, error) {
	ids, err := s.follows.Following(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveUsers(ctx, ids)
}

func (s *Service) resolveUsers(ctx context.Context, ids []string) ([]auth.PublicUser, error) {
	users := make([]auth.PublicUser, 0, len(ids))
	for _, id := range ids {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		users = append(users, user.Public())
	}
	return users, nil
}

func (s *Service) view(ctx context.Context, post *Post) (*PostView, error) {
	likeCount, err := s.likes.CountByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	commentCount, err := s.comments.CountByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &PostView{Post: *post, LikeCount: likeCount, CommentCount: commentCount}, nil
}

func normalizeTags(tags []string) []string {
	trimmed := sanitizer.TrimStrings(tags)
	seen := make(map[string]bool, len(trimmed))
	out := make([]string, 0, len(trimmed))
	for _, tag := range trimmed {
		tag = strings.ToLower(tag)
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}
