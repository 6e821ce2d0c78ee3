package ratelimit

import (
	"context"
	"errors"
	"time"
)

// FixedWindow implements a fixed window rate limiter. All requests inside a
// window share one counter; the counter resets when the window expires.
type FixedWindow struct {
	store  Store
	limit  int
	window time.Duration
}

// NewFixedWindow creates a fixed window limiter allowing limit requests per
// window.
func NewFixedWindow(store Store, limit int, window time.Duration) (*FixedWindow, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store is required")
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &FixedWindow{store: store, limit: limit, window: window}, nil
}

// Allow consumes one slot for key and reports whether the request fits
// within the current window.
func (f *FixedWindow) Allow(ctx context.Context, key string) (*Result, error) {
	current, ttl, err := f.store.IncrementAndGet(ctx, key, f.window)
	if err != nil {
		return nil, errors.Join(ErrStoreFailure, err)
	}

	remaining := f.limit - int(current)
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   current <= int64(f.limit),
		Limit:     f.limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// Reset clears the counter for key, starting a fresh window on the next
// request.
func (f *FixedWindow) Reset(ctx context.Context, key string) error {
	if err := f.store.Delete(ctx, key); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	return nil
}
