package feed

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	pkgmongo "github.com/feedforward/feedforward/pkg/mongo"
)

const (
	postsCollection    = "posts"
	commentsCollection = "comments"
	likesCollection    = "likes"
	followsCollection  = "follows"
)

const defaultListLimit = 20

// MongoPostStore is the MongoDB implementation of PostStore.
type MongoPostStore struct {
	coll *mongo.Collection
}

func NewMongoPostStore(db *mongo.Database) *MongoPostStore {
	return &MongoPostStore{coll: db.Collection(postsCollection)}
}

func (s *MongoPostStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}
	return nil
}

func (s *MongoPostStore) Create(ctx context.Context, post *Post) error {
	if _, err := s.coll.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (s *MongoPostStore) FindByID(ctx context.Context, id string) (*Post, error) {
	var post Post
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &post, nil
}

func (s *MongoPostStore) List(ctx context.Context, filter ListPostsFilter) ([]Post, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Tag != "" {
		query["tags"] = filter.Tag
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := []Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}

func (s *MongoPostStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// MongoCommentStore is the MongoDB implementation of CommentStore.
type MongoCommentStore struct {
	coll *mongo.Collection
}

func NewMongoCommentStore(db *mongo.Database) *MongoCommentStore {
	return &MongoCommentStore{coll: db.Collection(commentsCollection)}
}

func (s *MongoCommentStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create comment indexes: %w", err)
	}
	return nil
}

func (s *MongoCommentStore) Create(ctx context.Context, comment *Comment) error {
	if _, err := s.coll.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (s *MongoCommentStore) FindByID(ctx context.Context, id string) (*Comment, error) {
	var comment Comment
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&comment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return &comment, nil
}

func (s *MongoCommentStore) ListByPost(ctx context.Context, postID string) ([]Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{"post_id": postID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	comments := []Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	return comments, nil
}

func (s *MongoCommentStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (s *MongoCommentStore) DeleteByPost(ctx context.Context, postID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"post_id": postID}); err != nil {
		return fmt.Errorf("failed to delete post comments: %w", err)
	}
	return nil
}

func (s *MongoCommentStore) CountByPost(ctx context.Context, postID string) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return count, nil
}

// MongoLikeStore is the MongoDB implementation of LikeStore. The unique
// (post_id, user_id) index makes Like idempotent under concurrency.
type MongoLikeStore struct {
	coll *mongo.Collection
}

func NewMongoLikeStore(db *mongo.Database) *MongoLikeStore {
	return &MongoLikeStore{coll: db.Collection(likesCollection)}
}

func (s *MongoLikeStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "post_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create like indexes: %w", err)
	}
	return nil
}

func (s *MongoLikeStore) Like(ctx context.Context, like *Like) (bool, error) {
	if _, err := s.coll.InsertOne(ctx, like); err != nil {
		if pkgmongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert like: %w", err)
	}
	return true, nil
}

func (s *MongoLikeStore) Unlike(ctx context.Context, postID, userID string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"post_id": postID, "user_id": userID})
	if err != nil {
		return false, fmt.Errorf("failed to delete like: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoLikeStore) CountByPost(ctx context.Context, postID string) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"post_id": postID})
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

func (s *MongoLikeStore) DeleteByPost(ctx context.Context, postID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"post_id": postID}); err != nil {
		return fmt.Errorf("failed to delete post likes: %w", err)
	}
	return nil
}

// MongoFollowStore is the MongoDB implementation of FollowStore.
type MongoFollowStore struct {
	coll *mongo.Collection
}

func NewMongoFollowStore(db *mongo.Database) *MongoFollowStore {
	return &MongoFollowStore{coll: db.Collection(followsCollection)}
}

func (s *MongoFollowStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "follower_id", Value: 1}, {Key: "followee_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "followee_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create follow indexes: %w", err)
	}
	return nil
}

func (s *MongoFollowStore) Follow(ctx context.Context, follow *Follow) (bool, error) {
	if _, err := s.coll.InsertOne(ctx, follow); err != nil {
		if pkgmongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert follow: %w", err)
	}
	return true, nil
}

func (s *MongoFollowStore) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"follower_id": followerID, "followee_id": followeeID})
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoFollowStore) Followers(ctx context.Context, userID string) ([]string, error) {
	return s.listIDs(ctx, bson.M{"followee_id": userID}, "follower_id")
}

func (s *MongoFollowStore) Following(ctx context.Context, userID string) ([]string, error) {
	return s.listIDs(ctx, bson.M{"follower_id": userID}, "followee_id")
}

func (s *MongoFollowStore) listIDs(ctx context.Context, filter bson.M, field string) ([]string, error) {
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list follows: %w", err)
	}

	var follows []Follow
	if err := cursor.All(ctx, &follows); err != nil {
		return nil, fmt.Errorf("failed to decode follows: %w", err)
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		if field == "follower_id" {
			ids = append(ids, f.FollowerID)
		} else {
			ids = append(ids, f.FolloweeID)
		}
	}
	return ids, nil
}
