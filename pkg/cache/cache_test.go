package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreachable returns a cache whose redis tier always fails, so only the
// local tier can answer.
func unreachable() *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	return NewCacheWithClient(client, time.Minute, 5*time.Second)
}

func TestLocalTier(t *testing.T) {
	c := unreachable()
	defer c.Close()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []string{"a", "b"}); err == nil {
		t.Errorf("Expected redis error from unreachable server")
	}
	var out []string
	if err := c.Get(ctx, "k", &out); err != nil {
		t.Fatalf("Expected local hit, got %v", err)
	}
	if len(out) != 2 || out[1] != "b" {
		t.Errorf("Unexpected cached value %v", out)
	}

	now = now.Add(6 * time.Second)
	if err := c.Get(ctx, "k", &out); err == nil {
		t.Errorf("Expected expired local entry to fall through to redis")
	}
}

func TestDeleteClearsLocalTier(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()
	_ = c.Set(ctx, "k", 1)
	_ = c.Delete(ctx, "k")
	var out int
	if err := c.Get(ctx, "k", &out); err == nil {
		t.Errorf("Expected deleted key to miss")
	}
}

func TestLocalTTLIsCappedByTTL(t *testing.T) {
	c := NewCacheWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), time.Second, time.Minute)
	defer c.Close()
	if c.localTTL != time.Second {
		t.Errorf("Expected local ttl to be capped at %v, got %v", time.Second, c.localTTL)
	}
}

func TestCounterSkipsLocalTier(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()
	_ = c.Set(ctx, "gen", 3)
	if _, err := c.Counter(ctx, "gen"); err == nil {
		t.Errorf("Expected counter read to go to redis")
	}
	if _, err := c.Incr(ctx, "gen"); err == nil {
		t.Errorf("Expected incr to go to redis")
	}
}
