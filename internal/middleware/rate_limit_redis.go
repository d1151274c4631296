package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// INCR and arm the expiry in one round trip so a key can never outlive its window.
var fixedWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

type RedisWindowStore struct {
	client redis.Scripter
}

func NewRedisWindowStore(client redis.Scripter) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	res, err := fixedWindowScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit window %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limit window %s: unexpected reply %v", key, res)
	}

	count, ttlMillis := res[0], res[1]
	if count <= int64(limit) {
		return true, 0, nil
	}

	retryAfter := int((ttlMillis + 999) / 1000)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter, nil
}
