package feed

import "errors"

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNotOwner        = errors.New("not the owner")
	ErrSelfFollow      = errors.New("cannot follow yourself")
)
