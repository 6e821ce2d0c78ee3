package feed

import "time"

// Post is a feed entry authored by a user.
type Post struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Title     string    `bson:"title" json:"title"`
	Content   string    `bson:"content" json:"content"`
	Media     []string  `bson:"media,omitempty" json:"media,omitempty"`
	Tags      []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PostView is a post together with its interaction counts.
type PostView struct {
	Post
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
}

// Comment is a reply attached to a post.
type Comment struct {
	ID        string    `bson:"_id" json:"id"`
	PostID    string    `bson:"post_id" json:"post_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Like marks a user's like on a post. A user likes a post at most once.
type Like struct {
	ID        string    `bson:"_id" json:"id"`
	PostID    string    `bson:"post_id" json:"post_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Follow is a directed edge from follower to followee. The pair is unique
// and self-edges are rejected.
type Follow struct {
	ID         string    `bson:"_id" json:"id"`
	FollowerID string    `bson:"follower_id" json:"follower_id"`
	FolloweeID string    `bson:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
