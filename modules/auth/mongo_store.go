package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	pkgmongo "github.com/feedforward/feedforward/pkg/mongo"
)

const (
	usersCollection    = "users"
	sessionsCollection = "sessions"
)

// MongoUserStore is the MongoDB implementation of UserStore.
type MongoUserStore struct {
	coll *mongo.Collection
}

// NewMongoUserStore creates a user store on db.
func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique indexes on email and username. Index
// names follow the "<field>_1" convention so duplicate key errors can be
// mapped back to the field.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "reset_token_hash", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(
				bson.D{{Key: "reset_token_hash", Value: bson.D{{Key: "$exists", Value: true}}}},
			),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (s *MongoUserStore) Create(ctx context.Context, user *User) error {
	if _, err := s.coll.InsertOne(ctx, user); err != nil {
		if pkgmongo.IsDuplicateKeyError(err) {
			field := pkgmongo.DuplicateKeyField(err)
			if field == "" {
				field = "email"
			}
			return &DuplicateFieldError{Field: field}
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) FindByEmailOrUsername(ctx context.Context, identifier string) (*User, error) {
	return s.findOne(ctx, bson.M{"$or": []bson.M{
		{"email": identifier},
		{"username": identifier},
	}})
}

func (s *MongoUserStore) FindByResetTokenHash(ctx context.Context, tokenHash string) (*User, error) {
	if tokenHash == "" {
		return nil, ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"reset_token_hash": tokenHash})
}

func (s *MongoUserStore) SetVerified(ctx context.Context, id string) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_verified": true, "updated_at": time.Now()},
	})
}

func (s *MongoUserStore) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"reset_token_hash":       tokenHash,
			"reset_token_expires_at": expiresAt,
			"updated_at":             time.Now(),
		},
	})
}

func (s *MongoUserStore) ConsumeResetToken(ctx context.Context, id, tokenHash, newPasswordHash string) error {
	// The filter repeats the hash and expiry so a concurrent consume or a
	// replaced token cannot reuse the same secret.
	return s.updateOne(ctx, bson.M{
		"_id":                    id,
		"reset_token_hash":       tokenHash,
		"reset_token_expires_at": bson.M{"$gt": time.Now()},
	}, bson.M{
		"$set":   bson.M{"password_hash": newPasswordHash, "updated_at": time.Now()},
		"$unset": bson.M{"reset_token_hash": "", "reset_token_expires_at": ""},
	})
}

func (s *MongoUserStore) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"avatar": avatarURL, "updated_at": time.Now()},
	})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var user User
	if err := s.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (s *MongoUserStore) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// MongoSessionStore is the MongoDB implementation of SessionStore.
type MongoSessionStore struct {
	coll *mongo.Collection
}

// NewMongoSessionStore creates a session store on db.
func NewMongoSessionStore(db *mongo.Database) *MongoSessionStore {
	return &MongoSessionStore{coll: db.Collection(sessionsCollection)}
}

// EnsureIndexes creates the unique token index and a TTL index on
// expires_at so the server reaps expired sessions on its own.
func (s *MongoSessionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

func (s *MongoSessionStore) Create(ctx context.Context, session *Session) error {
	if _, err := s.coll.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *MongoSessionStore) FindByToken(ctx context.Context, tok string) (*Session, error) {
	// The TTL monitor deletes lazily, so the expiry is checked here too.
	var session Session
	err := s.coll.FindOne(ctx, bson.M{
		"token":      tok,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

func (s *MongoSessionStore) DeleteByToken(ctx context.Context, tok string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"token": tok}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *MongoSessionStore) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

func (s *MongoSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now()}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.DeletedCount, nil
}
