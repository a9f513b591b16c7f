// Package redisclient wraps go-redis with the small surface the cache,
// rate limiter, and metrics aggregator share. Grounded on the teacher's
// redisclient/redis.go (ParseURL + NewClient + Ping), extended with the
// Get/Set/Incr/Expire operations those three consumers need — the
// teacher's version only ever called Ping for a startup health check.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentrouter/lattice-gateway/config"
)

// Client is a thin wrapper over *redis.Client.
type Client struct {
	c *redis.Client
}

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed.
func New(cfg *config.Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid SHARED_STORE_URL: %w", err)
	}
	r := redis.NewClient(opt)
	return &Client{c: r}, nil
}

// Ping checks connectivity, used at startup and by the readiness probe.
func (r *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.c.Ping(ctx).Err()
}

// Get returns (value, true, nil) on a hit, ("", false, nil) on a miss,
// and ("", false, err) on any other failure.
func (r *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.c.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key with an optional TTL (ttl<=0 means no expiry).
func (r *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

// Incr increments key by one and returns the new value. If this is the
// key's first write (new value == 1) the caller is expected to follow up
// with Expire to bound the counter's lifetime — the fixed-window pattern
// the ratelimit package's Redis-backed limiter uses.
func (r *Client) Incr(ctx context.Context, key string) (int64, error) {
	return r.c.Incr(ctx, key).Result()
}

// Expire sets a TTL on an existing key.
func (r *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.c.Expire(ctx, key, ttl).Err()
}

// HIncrBy increments a field in a hash by delta and returns the new value,
// used by the Redis-backed metrics aggregator to keep per-provider and
// per-band counters without read-modify-write races.
func (r *Client) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return r.c.HIncrBy(ctx, key, field, delta).Result()
}

// HGetAll returns every field in a hash, used to build a metrics snapshot.
func (r *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.c.HGetAll(ctx, key).Result()
}

// Close releases the underlying connection pool.
func (r *Client) Close() error {
	return r.c.Close()
}
