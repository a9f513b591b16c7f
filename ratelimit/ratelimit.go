// Package ratelimit implements the rate limiter (C7): a fixed-window
// request counter keyed by consumer (bearer token, or client address
// when no token is present). Adapted from the teacher's
// middleware/ratelimit.go, which keeps a per-minute sliding window of
// timestamps in memory; this gateway counts requests in a fixed window
// instead (one day by default, with RATE_LIMIT_PER_DAY as the budget).
// The Redis-backed limiter aligns windows to multiples of the window
// length since the Unix epoch; the in-process one opens a window at a
// consumer's first request. It also adds a
// Redis-backed implementation so the limit is shared across replicas
// rather than per-process — the teacher's version explicitly notes
// "for distributed setups, extend with Redis" without doing so.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentrouter/lattice-gateway/redisclient"
)

// Decision is the outcome of one Allow check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter caps how many requests a consumer may make per window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// disabled always allows, used when limit<=0 or window<=0 (§4.7: a
// non-positive configuration turns the limiter off rather than erroring).
type disabled struct{}

func (disabled) Allow(ctx context.Context, key string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// New returns the Redis-backed limiter when redis is non-nil, otherwise
// an in-process one. Either returns disabled{} if limit or window are
// non-positive.
func New(redis *redisclient.Client, limit int, window time.Duration) Limiter {
	if limit <= 0 || window <= 0 {
		return disabled{}
	}
	if redis != nil {
		return &redisLimiter{redis: redis, limit: limit, window: window}
	}
	return newInProcess(limit, window)
}

// ─── In-process ─────────────────────────────────────────────

type inProcessWindow struct {
	count   int
	resetAt time.Time
}

// inProcess is a single-instance fixed-window counter, used when no
// Redis client is configured (development, or single-replica deploys).
type inProcess struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*inProcessWindow
}

func newInProcess(limit int, window time.Duration) *inProcess {
	return &inProcess{limit: limit, window: window, windows: make(map[string]*inProcessWindow)}
}

func (l *inProcess) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &inProcessWindow{count: 0, resetAt: now.Add(l.window)}
		l.windows[key] = w
	}

	if w.count >= l.limit {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: w.resetAt}, nil
	}
	w.count++
	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - w.count, ResetAt: w.resetAt}, nil
}

// ─── Redis-backed ───────────────────────────────────────────

// redisLimiter implements the fixed window with INCR + a first-write
// EXPIRE, the standard Redis rate-limiting idiom: the counter key names
// the current window index (Unix time divided by the window length), and
// the TTL only clears the counter once its window has passed.
type redisLimiter struct {
	redis  *redisclient.Client
	limit  int
	window time.Duration
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, err := l.redis.Incr(ctx, redisKey)
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.window); err != nil {
			return Decision{}, err
		}
	}

	resetAt := time.Unix((bucket+1)*int64(l.window.Seconds()), 0)
	if count > int64(l.limit) {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, ResetAt: resetAt}, nil
	}
	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - int(count), ResetAt: resetAt}, nil
}
