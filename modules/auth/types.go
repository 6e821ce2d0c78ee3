package auth

import "time"

// User represents an account. PasswordHash and the reset token fields never
// leave the server; JSON serialization excludes them.
type User struct {
	ID                  string     `bson:"_id" json:"id"`
	Name                string     `bson:"name" json:"name"`
	Username            string     `bson:"username" json:"username"`
	Email               string     `bson:"email" json:"email"`
	PasswordHash        string     `bson:"password_hash" json:"-"`
	Avatar              string     `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Bio                 string     `bson:"bio,omitempty" json:"bio,omitempty"`
	Interests           []string   `bson:"interests,omitempty" json:"interests,omitempty"`
	IsVerified          bool       `bson:"is_verified" json:"is_verified"`
	ResetTokenHash      string     `bson:"reset_token_hash,omitempty" json:"-"`
	ResetTokenExpiresAt *time.Time `bson:"reset_token_expires_at,omitempty" json:"-"`
	CreatedAt           time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at" json:"updated_at"`
}

// PublicUser is the profile shape returned to clients.
type PublicUser struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Avatar     string    `json:"avatar,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Interests  []string  `json:"interests,omitempty"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Public returns the client-visible projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		Avatar:     u.Avatar,
		Bio:        u.Bio,
		Interests:  u.Interests,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// Session is a server-side record of an issued bearer token. Deleting the
// record revokes the token before its signed expiry.
type Session struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Token     string    `bson:"token" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
