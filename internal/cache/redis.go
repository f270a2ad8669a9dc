package cache

import (
	"context"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// Connect opens a Redis client for the candle cache. The cache is
// optional: an empty addr or an unreachable server returns nil and the
// agent runs without caching.
func Connect(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			log.Printf("invalid REDIS_URL %q, caching disabled: %v", addr, err)
			return nil
		}
		opts = parsed
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		log.Printf("redis unreachable at %s, caching disabled: %v", opts.Addr, err)
		return nil
	}
	log.Println("Connected to Redis")
	return client
}
