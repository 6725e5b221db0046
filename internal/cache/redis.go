package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 3 * time.Second

// RedisCache keeps enveloped values in Redis so multiple client processes can
// share one session. The envelope expiry stays authoritative; the Redis TTL
// just keeps dead keys from lingering.
type RedisCache struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
}

// NewRedisCache builds a Redis-backed cache. prefix namespaces the keys.
func NewRedisCache(addr, password, prefix string, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		log:    logger,
	}
}

func (c *RedisCache) Set(key string, value any, ttl time.Duration) {
	data, err := encodeEnvelope(value, ttl)
	if err != nil {
		c.log.Error("cache set: encode", "key", key, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		c.log.Error("cache set: redis", "key", key, "err", err)
	}
}

func (c *RedisCache) Get(key string, out any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.log.Error("cache get: redis", "key", key, "err", err)
		return false
	}
	ok, expired := decodeEnvelope(data, out)
	if expired {
		c.Remove(key)
	}
	return ok
}

func (c *RedisCache) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil && err != redis.Nil {
		c.log.Error("cache remove: redis", "key", key, "err", err)
	}
}

func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil && err != redis.Nil {
			c.log.Error("cache clear: redis", "key", iter.Val(), "err", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Error("cache clear: scan", "err", err)
	}
}
