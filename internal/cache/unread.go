// Package cache holds read-through caches in front of the document store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// UnreadKeyPrefix is the key prefix for per-recipient unread notification counts.
const UnreadKeyPrefix = "notifications:unread:"

// generationTTL bounds how long a recipient's generation counter outlives
// its last invalidation.
const generationTTL = 24 * time.Hour

// UnreadCache stores the unread notification count of each recipient.
// Writers must call Invalidate after any change to the recipient's
// notifications has been committed.
//
// Every Invalidate bumps a per-recipient generation. A reader that missed
// takes the generation before counting and passes it to SetIfGeneration, so
// a count taken before a concurrent invalidation is never stored.
type UnreadCache interface {
	// Get returns (count, found, error). found=false on a miss.
	Get(ctx context.Context, uid string) (int64, bool, error)
	Generation(ctx context.Context, uid string) (int64, error)
	// SetIfGeneration stores count unless uid was invalidated after gen was
	// read. It reports whether the count was stored.
	SetIfGeneration(ctx context.Context, uid string, count, gen int64) (bool, error)
	Invalidate(ctx context.Context, uid string) error
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisUnreadCache implements UnreadCache with one string key per recipient.
type RedisUnreadCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisUnreadCache(client *redis.Client, ttl time.Duration) *RedisUnreadCache {
	return &RedisUnreadCache{client: client, ttl: ttl}
}

func unreadKey(uid string) string {
	return UnreadKeyPrefix + uid
}

func generationKey(uid string) string {
	return UnreadKeyPrefix + "gen:" + uid
}

// setIfGeneration: KEYS[1] count, KEYS[2] generation; ARGV gen, count, ttl ms.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func (c *RedisUnreadCache) Get(ctx context.Context, uid string) (int64, bool, error) {
	raw, err := c.client.Get(ctx, unreadKey(uid)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get unread count: %w", err)
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Corrupt entry: treat as a miss so the caller repopulates it.
		return 0, false, nil
	}
	return count, true, nil
}

func (c *RedisUnreadCache) Generation(ctx context.Context, uid string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(uid)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get unread generation: %w", err)
	}
	return gen, nil
}

func (c *RedisUnreadCache) SetIfGeneration(ctx context.Context, uid string, count, gen int64) (bool, error) {
	keys := []string{unreadKey(uid), generationKey(uid)}
	stored, err := setIfGeneration.Run(ctx, c.client, keys, gen, count, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("set unread count: %w", err)
	}
	return stored == 1, nil
}

func (c *RedisUnreadCache) Invalidate(ctx context.Context, uid string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(uid))
		pipe.Expire(ctx, generationKey(uid), generationTTL)
		pipe.Del(ctx, unreadKey(uid))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate unread count: %w", err)
	}
	return nil
}

// Noop is used when no Redis URL is configured. Every read is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string) (int64, bool, error)                    { return 0, false, nil }
func (Noop) Generation(context.Context, string) (int64, error)                   { return 0, nil }
func (Noop) SetIfGeneration(context.Context, string, int64, int64) (bool, error) { return false, nil }
func (Noop) Invalidate(context.Context, string) error                            { return nil }
