package middleware

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Requires a Redis instance on localhost:6379; skipped otherwise.
func TestRedisWindowStore_Allow(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}

	store := NewRedisWindowStore(client)
	key := "test-habitat-window-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer client.Del(context.Background(), key)

	for i := 0; i < 3; i++ {
		allowed, _, err := store.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("Allow() failed: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, retryAfter, err := store.Allow(ctx, key, 3, time.Minute)
	if err != nil {
		t.Fatalf("Allow() failed: %v", err)
	}
	if allowed {
		t.Error("4th request should be blocked")
	}
	if retryAfter < 1 || retryAfter > 60 {
		t.Errorf("retryAfter = %d, want 1..60", retryAfter)
	}

	ttl, err := client.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		t.Errorf("window key should carry an expiry, got %v (%v)", ttl, err)
	}
}
