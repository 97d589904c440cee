package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/matst80/securityapp/pkg/common/jsoncompat"
)

// ErrMiss is returned by Get when the key is in neither tier.
var ErrMiss = errors.New("cache miss")

type LocalEntry struct {
	Expires time.Time
	Data    []byte
}

// Cache is a redis cache with a short lived in-process tier in front of it.
type Cache struct {
	client   *redis.Client
	ttl      time.Duration
	localTTL time.Duration
	mu       sync.RWMutex
	memCache map[string]LocalEntry
	now      func() time.Time
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	LocalTTL time.Duration
}

func NewCache(opts Options) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewCacheWithClient(rdb, opts.TTL, opts.LocalTTL)
}

func NewCacheWithClient(client *redis.Client, ttl, localTTL time.Duration) *Cache {
	if localTTL > ttl {
		localTTL = ttl
	}
	return &Cache{
		client:   client,
		ttl:      ttl,
		localTTL: localTTL,
		memCache: make(map[string]LocalEntry),
		now:      time.Now,
	}
}

func (c *Cache) getLocal(key string) ([]byte, bool) {
	c.mu.RLock()
	local, found := c.memCache[key]
	c.mu.RUnlock()
	if !found {
		return nil, false
	}
	if local.Expires.Before(c.now()) {
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
		return nil, false
	}
	return local.Data, true
}

func (c *Cache) setLocal(key string, data []byte) {
	if c.localTTL <= 0 {
		return
	}
	c.mu.Lock()
	c.memCache[key] = LocalEntry{Expires: c.now().Add(c.localTTL), Data: data}
	c.mu.Unlock()
}

func (c *Cache) Get(ctx context.Context, key string, out any) error {
	data, ok := c.getLocal(key)
	if !ok {
		var err error
		data, err = c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrMiss
		}
		if err != nil {
			return errors.Wrap(err, "redis get")
		}
		c.setLocal(key, data)
	}
	return jsoncompat.Unmarshal(data, out)
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := jsoncompat.Marshal(value)
	if err != nil {
		return err
	}
	c.setLocal(key, data)
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.memCache, k)
	}
	c.mu.Unlock()
	return c.client.Del(ctx, keys...).Err()
}

// Counter reads a counter from redis, bypassing the local tier.
func (c *Cache) Counter(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "redis get counter")
	}
	return n, nil
}

func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, key).Result()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
