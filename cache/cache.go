// Package cache implements the response cache (C6): an exact-match cache
// keyed by (normalized prompt, provider, model, band), deliberately
// replacing the teacher's semantic/embedding cache in caching/caching.go.
//
// The teacher's engine does cosine-similarity lookups over stored
// embeddings — useful when "close enough" prompts should share a cached
// answer, but it requires an embedding model call on every lookup and
// miss, which this gateway has no component for. The spec calls for
// exact-match only, so this package keeps the teacher's normalize+
// SHA-256-hash idiom (normalizePrompt/hashPrompt in caching/caching.go)
// and its Redis-backed key/TTL shape, and drops the vector index,
// per-namespace segmentation, and poisoning-validation machinery — none
// of it applies when the key is an exact hash.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/redisclient"
	"github.com/agentrouter/lattice-gateway/types"
)

const keyPrefix = "exact:"

// keyMaterial is the canonical payload hashed to form a cache key. Field
// order is fixed by struct declaration order so json.Marshal is stable.
type keyMaterial struct {
	PromptNormalized string `json:"prompt_normalized"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Band             string `json:"band"`
}

// Key returns the cache key for one candidate dispatch. Request metadata
// is deliberately excluded — it never participates in cache identity.
func Key(prompt, provider, model, band string) string {
	material := keyMaterial{
		PromptNormalized: normalizePrompt(prompt),
		Provider:         strings.ToLower(provider),
		Model:            strings.ToLower(model),
		Band:             strings.ToLower(band),
	}
	// Marshal error is impossible for this fixed, string-only struct.
	body, _ := json.Marshal(material)
	sum := sha256.Sum256(body)
	return keyPrefix + hex.EncodeToString(sum[:])
}

func normalizePrompt(prompt string) string {
	return strings.ToLower(strings.TrimSpace(prompt))
}

// Cache is the response cache. A nil *redisclient.Client disables it —
// there is no in-process fallback store, matching the spec's "shared
// cache or none" posture (a per-instance cache would make hit/miss
// behavior depend on which replica served the request).
type Cache struct {
	redis   *redisclient.Client
	ttl     time.Duration
	enabled bool
	log     zerolog.Logger
}

// New constructs a Cache. enabled=false or a zero ttl both behave as an
// always-miss cache without touching Redis.
func New(redis *redisclient.Client, ttlSeconds int, enabled bool, log zerolog.Logger) *Cache {
	return &Cache{
		redis:   redis,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		enabled: enabled && redis != nil && ttlSeconds > 0,
		log:     log.With().Str("component", "cache").Logger(),
	}
}

// Enabled reports whether lookups can hit.
func (c *Cache) Enabled() bool { return c.enabled }

// Ping reports whether the backing shared store is reachable. A Cache
// with no shared store configured (redis == nil) has nothing to check
// and is vacuously healthy — the readiness probe only cares about a
// configured store that has gone unreachable.
func (c *Cache) Ping(ctx context.Context) bool {
	if c.redis == nil {
		return true
	}
	return c.redis.Ping(ctx) == nil
}

// Get returns the cached response for key, or (zero, false) on a miss or
// any cache error — a cache failure must never fail the request.
func (c *Cache) Get(ctx context.Context, key string) (types.CompletionResponse, bool) {
	if !c.enabled {
		return types.CompletionResponse{}, false
	}
	raw, ok, err := c.redis.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		return types.CompletionResponse{}, false
	}
	if !ok {
		return types.CompletionResponse{}, false
	}
	var entry types.CachedEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt, treating as miss")
		return types.CompletionResponse{}, false
	}
	return entry.Response, true
}

// Set stores resp under key with the configured TTL. Failures are logged
// and swallowed — a store failure degrades to always-miss, never an
// error surfaced to the caller.
func (c *Cache) Set(ctx context.Context, key string, resp types.CompletionResponse) {
	if !c.enabled {
		return
	}
	body, err := json.Marshal(types.CachedEntry{Response: resp})
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.redis.Set(ctx, key, string(body), c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
