package auth

import "context"

type ctxKey int

const (
	userCtxKey ctxKey = iota
	tokenCtxKey
)

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext returns the authenticated user, or nil and false.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userCtxKey).(*User)
	return user, ok
}

// WithToken returns a context carrying the raw bearer token, kept so logout
// can revoke the exact session that authenticated the request.
func WithToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, tokenCtxKey, tok)
}

// TokenFromContext returns the raw bearer token, or "" and false.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenCtxKey).(string)
	return tok, ok
}
