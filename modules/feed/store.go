package feed

import "context"

// ListPostsFilter narrows a post listing. Zero values mean "any".
type ListPostsFilter struct {
	UserID string
	Tag    string
	Limit  int64
	Offset int64
}

// PostStore persists posts.
type PostStore interface {
	Create(ctx context.Context, post *Post) error
	FindByID(ctx context.Context, id string) (*Post, error)
	// List returns posts matching the filter, newest first.
	List(ctx context.Context, filter ListPostsFilter) ([]Post, error)
	Delete(ctx context.Context, id string) error
}

// CommentStore persists comments.
type CommentStore interface {
	Create(ctx context.Context, comment *Comment) error
	FindByID(ctx context.Context, id string) (*Comment, error)
	// ListByPost returns a post's comments, oldest first.
	ListByPost(ctx context.Context, postID string) ([]Comment, error)
	Delete(ctx context.Context, id string) error
	DeleteByPost(ctx context.Context, postID string) error
	CountByPost(ctx context.Context, postID string) (int64, error)
}

// LikeStore persists likes with (post, user) uniqueness.
type LikeStore interface {
	// Like records the like, reporting false when it already existed.
	Like(ctx context.Context, like *Like) (bool, error)
	// Unlike removes the like, reporting false when none existed.
	Unlike(ctx context.Context, postID, userID string) (bool, error)
	CountByPost(ctx context.Context, postID string) (int64, error)
	DeleteByPost(ctx context.Context, postID string) error
}

// FollowStore persists follow edges with pair uniqueness.
type FollowStore interface {
	// Follow records the edge, reporting false when it already existed.
	Follow(ctx context.Context, follow *Follow) (bool, error)
	// Unfollow removes the edge, reporting false when none existed.
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	// Followers returns the IDs of users following userID.
	Followers(ctx context.Context, userID string) ([]string, error)
	// Following returns the IDs of users that userID follows.
	Following(ctx context.Context, userID string) ([]string, error)
}
