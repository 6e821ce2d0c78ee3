package token

import "errors"

var (
	ErrMissingSecret = errors.New("token: missing signing secret")
	ErrTokenInvalid  = errors.New("token: invalid token")
	ErrTokenExpired  = errors.New("token: token expired")
)
