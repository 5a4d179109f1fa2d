package eta

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/steerclearwm/steerclear/internal/models"
)

// RedisCache backs the leg cache with Redis so repeated legs (the
// handful of popular campus stops) survive restarts and are shared
// between processes.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr, password string, ttl time.Duration) *RedisCache {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisCache{client: c, ttl: ttl}
}

func cacheKey(from, to models.Coord) string {
	return "eta:" + legKey(from, to)
}

func (c *RedisCache) Get(ctx context.Context, from, to models.Coord) (int, bool) {
	v, err := c.client.Get(ctx, cacheKey(from, to)).Result()
	if err != nil {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return secs, true
}

func (c *RedisCache) Set(ctx context.Context, from, to models.Coord, seconds int) {
	// best-effort; a failed cache write must not fail the schedule
	_ = c.client.Set(ctx, cacheKey(from, to), strconv.Itoa(seconds), c.ttl).Err()
}

func (c *RedisCache) Close() error { return c.client.Close() }
