package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedforward/feedforward/modules/auth"
	"github.com/feedforward/feedforward/modules/feed"
	"github.com/feedforward/feedforward/pkg/validator"
)

type feedEnv struct {
	svc   *feed.Service
	users *auth.MemoryUserStore
}

func newFeedEnv(t *testing.T) *feedEnv {
	t.Helper()
	users := auth.NewMemoryUserStore()
	svc := feed.NewService(
		feed.NewMemoryPostStore(),
		feed.NewMemoryCommentStore(),
		feed.NewMemoryLikeStore(),
		feed.NewMemoryFollowStore(),
		users,
	)
	return &feedEnv{svc: svc, users: users}
}

func (e *feedEnv) addUser(t *testing.T, username string) *auth.User {
	t.Helper()
	user := &auth.User{
		ID:        uuid.NewString(),
		Name:      "User " + username,
		Username:  username,
		Email:     username + "@example.com",
		CreatedAt: time.Now(),
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *feedEnv) addPost(t *testing.T, userID string) *feed.Post {
	t.Helper()
	post, err := e.svc.CreatePost(context.Background(), userID, feed.CreatePostParams{
		Title:   "Hello",
		Content: "First post",
		Tags:    []string{"Go", "go", " intro "},
	})
	require.NoError(t, err)
	return post
}

func TestService_CreatePost(t *testing.T) {
	t.Parallel()

	t.Run("normalizes tags and trims fields", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		author := env.addUser(t, "author")

		post, err := env.svc.CreatePost(context.Background(), author.ID, feed.CreatePostParams{
			Title:   "  Hello  ",
			Content: "body",
			Tags:    []string{"Go", "go", " Intro "},
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello", post.Title)
		assert.Equal(t, []string{"go", "intro"}, post.Tags)
	})

	t.Run("rejects oversized fields", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		author := env.addUser(t, "author")

		long := make([]byte, 101)
		for i := range long {
			long[i] = 'a'
		}
		_, err := env.svc.CreatePost(context.Background(), author.ID, feed.CreatePostParams{
			Title:   string(long),
			Content: "body",
		})
		require.Error(t, err)
		ve := validator.ExtractValidationErrors(err)
		require.NotNil(t, ve)
		assert.True(t, ve.Has("title"))
	})

	t.Run("rejects non-image media URLs", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		author := env.addUser(t, "author")

		_, err := env.svc.CreatePost(context.Background(), author.ID, feed.CreatePostParams{
			Title:   "Hello",
			Content: "body",
			Media:   []string{"http://example.com/file.exe"},
		})
		require.Error(t, err)
		assert.True(t, validator.IsValidationError(err))
	})
}

func TestService_ListPosts(t *testing.T) {
	t.Parallel()

	env := newFeedEnv(t)
	author := env.addUser(t, "author")
	other := env.addUser(t, "other")

	env.addPost(t, author.ID)
	env.addPost(t, author.ID)
	env.addPost(t, other.ID)

	byUser, err := env.svc.ListPosts(context.Background(), feed.ListPostsFilter{UserID: author.ID})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byTag, err := env.svc.ListPosts(context.Background(), feed.ListPostsFilter{Tag: "go"})
	require.NoError(t, err)
	assert.Len(t, byTag, 3)

	limited, err := env.svc.ListPosts(context.Background(), feed.ListPostsFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestService_DeletePost(t *testing.T) {
	t.Parallel()

	t.Run("owner deletes post with comments and likes", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		author := env.addUser(t, "author")
		reader := env.addUser(t, "reader")
		post := env.addPost(t, author.ID)

		_, err := env.svc.AddComment(context.Background(), reader.ID, post.ID, "nice")
		require.NoError(t, err)
		_, err = env.svc.LikePost(context.Background(), reader.ID, post.ID)
		require.NoError(t, err)

		require.NoError(t, env.svc.DeletePost(context.Background(), author.ID, post.ID))

		_, err = env.svc.GetPost(context.Background(), post.ID)
		assert.ErrorIs(t, err, feed.ErrPostNotFound)
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		author := env.addUser(t, "author")
		intruder := env.addUser(t, "intruder")
		post := env.addPost(t, author.ID)

		err := env.svc.DeletePost(context.Background(), intruder.ID, post.ID)
		assert.ErrorIs(t, err, feed.ErrNotOwner)
	})

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		author := env.addUser(t, "author")

		err := env.svc.DeletePost(context.Background(), author.ID, "missing")
		assert.ErrorIs(t, err, feed.ErrPostNotFound)
	})
}

func TestService_Comments(t *testing.T) {
	t.Parallel()

	t.Run("add list delete", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		author := env.addUser(t, "author")
		reader := env.addUser(t, "reader")
		post := env.addPost(t, author.ID)

		comment, err := env.svc.AddComment(context.Background(), reader.ID, post.ID, "  nice  ")
		require.NoError(t, err)
		assert.Equal(t, "nice", comment.Text)

		comments, err := env.svc.ListComments(context.Background(), post.ID)
		require.NoError(t, err)
		require.Len(t, comments, 1)

		// Only the comment author may delete.
		err = env.svc.DeleteComment(context.Background(), author.ID, comment.ID)
		assert.ErrorIs(t, err, feed.ErrNotOwner)

		require.NoError(t, env.svc.DeleteComment(context.Background(), reader.ID, comment.ID))
	})

	t.Run("comment on missing post", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		reader := env.addUser(t, "reader")

		_, err := env.svc.AddComment(context.Background(), reader.ID, "missing", "hello")
		assert.ErrorIs(t, err, feed.ErrPostNotFound)
	})

	t.Run("empty comment is rejected", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		author := env.addUser(t, "author")
		post := env.addPost(t, author.ID)

		_, err := env.svc.AddComment(context.Background(), author.ID, post.ID, "   ")
		assert.True(t, validator.IsValidationError(err))
	})
}

func TestService_Likes(t *testing.T) {
	t.Parallel()

	env := newFeedEnv(t)
	author := env.addUser(t, "author")
	a := env.addUser(t, "a")
	b := env.addUser(t, "b")
	post := env.addPost(t, author.ID)

	count, err := env.svc.LikePost(context.Background(), a.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Liking twice does not double count.
	count, err = env.svc.LikePost(context.Background(), a.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = env.svc.LikePost(context.Background(), b.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = env.svc.UnlikePost(context.Background(), a.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Unliking twice is a no-op.
	count, err = env.svc.UnlikePost(context.Background(), a.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	view, err := env.svc.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.LikeCount)
}

func TestService_Follows(t *testing.T) {
	t.Parallel()

	t.Run("follow unfollow listings", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		a := env.addUser(t, "a")
		b := env.addUser(t, "b")
		c := env.addUser(t, "c")

		require.NoError(t, env.svc.FollowUser(context.Background(), a.ID, c.ID))
		require.NoError(t, env.svc.FollowUser(context.Background(), b.ID, c.ID))
		// Repeat follow is a no-op.
		require.NoError(t, env.svc.FollowUser(context.Background(), a.ID, c.ID))

		followers, err := env.svc.Followers(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Len(t, followers, 2)

		following, err := env.svc.Following(context.Background(), a.ID)
		require.NoError(t, err)
		require.Len(t, following, 1)
		assert.Equal(t, c.ID, following[0].ID)

		require.NoError(t, env.svc.UnfollowUser(context.Background(), a.ID, c.ID))
		require.NoError(t, env.svc.UnfollowUser(context.Background(), a.ID, c.ID))

		followers, err = env.svc.Followers(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Len(t, followers, 1)
	})

	t.Run("self-follow is rejected", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		a := env.addUser(t, "a")

		err := env.svc.FollowUser(context.Background(), a.ID, a.ID)
		assert.ErrorIs(t, err, feed.ErrSelfFollow)
	})

	t.Run("unknown followee is rejected", func(t *testing.T) {
		t.Parallel()
		env := newFeedEnv(t)
		a := env.addUser(t, "a")

		err := env.svc.FollowUser(context.Background(), a.ID, "ghost")
		assert.ErrorIs(t, err, feed.ErrUserNotFound)
	})
}
