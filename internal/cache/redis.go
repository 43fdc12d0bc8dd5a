package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmledger/internal/log"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON-encoded values in Redis so several server processes
// can share derived data.
type RedisCache[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

var _ Cache[int] = (*RedisCache[int])(nil)

// NewRedisCache connects to url (redis://[:password@]host:port/db).
func NewRedisCache[T any](url, prefix string, ttl time.Duration, logger *log.Logger) (*RedisCache[T], error) {
	if url == "" {
		return nil, errors.New("missing REDIS_URL")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCacheWithClient[T](redis.NewClient(opts), prefix, ttl, logger), nil
}

// NewRedisCacheWithClient wraps client. Keys are "<prefix>:<key>"; a trailing
// colon on prefix is dropped.
func NewRedisCacheWithClient[T any](client *redis.Client, prefix string, ttl time.Duration, logger *log.Logger) *RedisCache[T] {
	prefix = strings.TrimRight(prefix, ":")
	if prefix == "" {
		prefix = "farmledger"
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &RedisCache[T]{client: client, prefix: prefix, ttl: ttl, logger: logger.WithComponent(log.ComponentCache)}
}

func (c *RedisCache[T]) warn(ctx context.Context, msg, key string, err error) {
	c.logger.WarnContext(ctx, msg, log.FieldCacheKey, key, log.FieldError, err.Error())
}

func (c *RedisCache[T]) key(k string) string { return c.prefix + ":" + k }

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	b, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn(ctx, "Redis get failed", key, err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		c.warn(ctx, "Dropping undecodable cache entry", key, err)
		c.Delete(ctx, key)
		return zero, false
	}
	return v, true
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	b, err := json.Marshal(data)
	if err != nil {
		c.warn(ctx, "Cache value not encodable", key, err)
		return
	}
	if err := c.client.Set(ctx, c.key(key), b, c.ttl).Err(); err != nil {
		c.warn(ctx, "Redis set failed", key, err)
	}
}

func (c *RedisCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.warn(ctx, "Redis delete failed", key, err)
	}
}

// Ping checks connectivity.
func (c *RedisCache[T]) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache[T]) Close() error { return c.client.Close() }
