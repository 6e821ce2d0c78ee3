package feed

import (
	"context"
	"sort"
	"sync"
)

// MemoryPostStore is an in-memory PostStore for tests and development.
type MemoryPostStore struct {
	mu    sync.RWMutex
	posts map[string]*Post
}

func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{posts: make(map[string]*Post)}
}

func (s *MemoryPostStore) Create(ctx context.Context, post *Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *post
	s.posts[post.ID] = &clone
	return nil
}

func (s *MemoryPostStore) FindByID(ctx context.Context, id string) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	clone := *post
	return &clone, nil
}

func (s *MemoryPostStore) List(ctx context.Context, filter ListPostsFilter) ([]Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []Post{}
	for _, post := range s.posts {
		if filter.UserID != "" && post.UserID != filter.UserID {
			continue
		}
		if filter.Tag != "" && !contains(post.Tags, filter.Tag) {
			continue
		}
		matched = append(matched, *post)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	start := filter.Offset
	if start > int64(len(matched)) {
		start = int64(len(matched))
	}
	end := start + limit
	if end > int64(len(matched)) {
		end = int64(len(matched))
	}
	return matched[start:end], nil
}

func (s *MemoryPostStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(s.posts, id)
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// MemoryCommentStore is an in-memory CommentStore.
type MemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]*Comment
}

func NewMemoryCommentStore() *MemoryCommentStore {
	return &MemoryCommentStore{comments: make(map[string]*Comment)}
}

func (s *MemoryCommentStore) Create(ctx context.Context, comment *Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *comment
	s.comments[comment.ID] = &clone
	return nil
}

func (s *MemoryCommentStore) FindByID(ctx context.Context, id string) (*Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	clone := *comment
	return &clone, nil
}

func (s *MemoryCommentStore) ListByPost(ctx context.Context, postID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []Comment{}
	for _, comment := range s.comments {
		if comment.PostID == postID {
			matched = append(matched, *comment)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched, nil
}

func (s *MemoryCommentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return ErrCommentNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *MemoryCommentStore) DeleteByPost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, comment := range s.comments {
		if comment.PostID == postID {
			delete(s.comments, id)
		}
	}
	return nil
}

func (s *MemoryCommentStore) CountByPost(ctx context.Context, postID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, comment := range s.comments {
		if comment.PostID == postID {
			count++
		}
	}
	return count, nil
}

// MemoryLikeStore is an in-memory LikeStore enforcing (post, user)
// uniqueness.
type MemoryLikeStore struct {
	mu    sync.Mutex
	likes map[string]*Like // keyed by postID + "/" + userID
}

func NewMemoryLikeStore() *MemoryLikeStore {
	return &MemoryLikeStore{likes: make(map[string]*Like)}
}

func likeKey(postID, userID string) string {
	return postID + "/" + userID
}

func (s *MemoryLikeStore) Like(ctx context.Context, like *Like) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey(like.PostID, like.UserID)
	if _, ok := s.likes[key]; ok {
		return false, nil
	}
	clone := *like
	s.likes[key] = &clone
	return true, nil
}

func (s *MemoryLikeStore) Unlike(ctx context.Context, postID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := likeKey(postID, userID)
	if _, ok := s.likes[key]; !ok {
		return false, nil
	}
	delete(s.likes, key)
	return true, nil
}

func (s *MemoryLikeStore) CountByPost(ctx context.Context, postID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, like := range s.likes {
		if like.PostID == postID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryLikeStore) DeleteByPost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, like := range s.likes {
		if like.PostID == postID {
			delete(s.likes, key)
		}
	}
	return nil
}

// MemoryFollowStore is an in-memory FollowStore enforcing pair uniqueness.
type MemoryFollowStore struct {
	mu      sync.Mutex
	follows map[string]*Follow // keyed by followerID + "/" + followeeID
}

func NewMemoryFollowStore() *MemoryFollowStore {
	return &MemoryFollowStore{follows: make(map[string]*Follow)}
}

func followKey(followerID, followeeID string) string {
	return followerID + "/" + followeeID
}

func (s *MemoryFollowStore) Follow(ctx context.Context, follow *Follow) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey(follow.FollowerID, follow.FolloweeID)
	if _, ok := s.follows[key]; ok {
		return false, nil
	}
	clone := *follow
	s.follows[key] = &clone
	return true, nil
}

func (s *MemoryFollowStore) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := followKey(followerID, followeeID)
	if _, ok := s.follows[key]; !ok {
		return false, nil
	}
	delete(s.follows, key)
	return true, nil
}

func (s *MemoryFollowStore) Followers(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	for _, follow := range s.follows {
		if follow.FolloweeID == userID {
			ids = append(ids, follow.FollowerID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryFollowStore) Following(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	for _, follow := range s.follows {
		if follow.FollowerID == userID {
			ids = append(ids, follow.FolloweeID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
