package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript increments the key and sets its expiry only when the increment
// started a new window, so the window end stays fixed under concurrency.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisStore is a Store backed by Redis, suitable for deployments with more
// than one server instance.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. Keys are namespaced with
// prefix to keep them apart from other Redis users.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// IncrementAndGet increments the counter for key, starting a new window if
// none is active.
func (s *RedisStore) IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.prefix + ":" + key}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, err
	}

	current := res[0].(int64)
	ttlMillis := res[1].(int64)
	if ttlMillis < 0 {
		ttlMillis = window.Milliseconds()
	}
	return current, time.Duration(ttlMillis) * time.Millisecond, nil
}

// Delete removes the counter for key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+":"+key).Err()
}
