// Package metrics implements the metrics aggregator (C8): request,
// cost, token, cache, and sensitivity counters exposed as both the
// spec's JSON snapshot (GET /v1/metrics) and, additively, a Prometheus
// text export grounded on the teacher's observability/metrics.go
// registry (see prometheus.go).
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/agentrouter/lattice-gateway/redisclient"
	"github.com/agentrouter/lattice-gateway/types"
)

// RequestRecord is what the pipeline reports for one completed dispatch.
type RequestRecord struct {
	Provider     string
	Model        string
	Band         string
	InputTokens  int64
	OutputTokens int64
	Cost         float64
	LatencyMs    int64
	Sensitive    bool
	// CountUsage is false for cache hits: the spec requires cache hits
	// never increment cost/token counters (§3 invariant), while still
	// counting as a request and recording latency/cache-hit stats.
	CountUsage bool
}

// Aggregator is the capability the pipeline and the HTTP handlers need.
type Aggregator interface {
	RecordRequest(ctx context.Context, rec RequestRecord)
	RecordCacheHit(ctx context.Context)
	RecordCacheMiss(ctx context.Context)
	Snapshot(ctx context.Context) (types.MetricsSnapshot, error)
	// Handler serves a Prometheus-format export, additive to Snapshot.
	Handler() http.HandlerFunc
}

// New returns the Redis-backed aggregator when redis is non-nil (shared
// across replicas), otherwise an in-process one (development / single
// replica).
func New(redis *redisclient.Client) Aggregator {
	if redis != nil {
		return newRedisAggregator(redis)
	}
	return newInProcessAggregator()
}

// ─── In-process ─────────────────────────────────────────────

type inProcessAggregator struct {
	mu sync.Mutex

	totalRequests     int64
	totalCost         float64
	totalInputTokens  int64
	totalOutputTokens int64
	latencySum        int64
	latencyCount      int64
	cacheHits         int64
	cacheMisses       int64
	sensitivityHits   int64
	byProvider        map[string]int64
	byModel           map[string]int64
	byBand            map[string]int64

	prom *registry
}

func newInProcessAggregator() *inProcessAggregator {
	return &inProcessAggregator{
		byProvider: make(map[string]int64),
		byModel:    make(map[string]int64),
		byBand:     make(map[string]int64),
		prom:       newRegistry(),
	}
}

func (a *inProcessAggregator) RecordRequest(ctx context.Context, rec RequestRecord) {
	a.mu.Lock()
	a.totalRequests++
	a.latencySum += rec.LatencyMs
	a.latencyCount++
	if rec.CountUsage {
		a.totalCost += rec.Cost
		a.totalInputTokens += rec.InputTokens
		a.totalOutputTokens += rec.OutputTokens
		a.byProvider[rec.Provider]++
		a.byModel[rec.Model]++
		a.byBand[rec.Band]++
	}
	if rec.Sensitive {
		a.sensitivityHits++
	}
	a.mu.Unlock()

	labels := map[string]string{"provider": rec.Provider, "model": rec.Model, "band": rec.Band}
	a.prom.counterInc("lattice_gateway_requests_total", labels)
	a.prom.histogramObserve("lattice_gateway_request_duration_ms", labels, float64(rec.LatencyMs))
	if rec.CountUsage {
		a.prom.counterAdd("lattice_gateway_cost_micros_total", labels, int64(rec.Cost*1e6))
		a.prom.counterAdd("lattice_gateway_input_tokens_total", labels, rec.InputTokens)
		a.prom.counterAdd("lattice_gateway_output_tokens_total", labels, rec.OutputTokens)
	}
}

func (a *inProcessAggregator) RecordCacheHit(ctx context.Context) {
	a.mu.Lock()
	a.cacheHits++
	a.mu.Unlock()
	a.prom.counterInc("lattice_gateway_cache_hits_total", nil)
}

func (a *inProcessAggregator) RecordCacheMiss(ctx context.Context) {
	a.mu.Lock()
	a.cacheMisses++
	a.mu.Unlock()
	a.prom.counterInc("lattice_gateway_cache_misses_total", nil)
}

func (a *inProcessAggregator) Snapshot(ctx context.Context) (types.MetricsSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	avgLatency := float64(0)
	if a.latencyCount > 0 {
		avgLatency = float64(a.latencySum) / float64(a.latencyCount)
	}

	return types.MetricsSnapshot{
		TotalRequests:     a.totalRequests,
		TotalCost:         a.totalCost,
		TotalInputTokens:  a.totalInputTokens,
		TotalOutputTokens: a.totalOutputTokens,
		AvgLatencyMs:      avgLatency,
		CacheHits:         a.cacheHits,
		CacheMisses:       a.cacheMisses,
		SensitivityHits:   a.sensitivityHits,
		ByProvider:        copyMap(a.byProvider),
		ByModel:           copyMap(a.byModel),
		ByBand:            copyMap(a.byBand),
	}, nil
}

func (a *inProcessAggregator) Handler() http.HandlerFunc { return a.prom.handler() }

func copyMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ─── Redis-backed ───────────────────────────────────────────

// redisAggregator keeps scalar totals in one hash and per-dimension
// breakdowns in their own hashes, all via HIncrBy so concurrent gateway
// replicas never race a read-modify-write.
type redisAggregator struct {
	redis *redisclient.Client
	prom  *registry
}

const (
	totalsKey    = "metrics:totals"
	byProviderKy = "metrics:by_provider"
	byModelKey   = "metrics:by_model"
	byBandKey    = "metrics:by_band"
)

func newRedisAggregator(redis *redisclient.Client) *redisAggregator {
	return &redisAggregator{redis: redis, prom: newRegistry()}
}

func (a *redisAggregator) RecordRequest(ctx context.Context, rec RequestRecord) {
	_, _ = a.redis.HIncrBy(ctx, totalsKey, "total_requests", 1)
	_, _ = a.redis.HIncrBy(ctx, totalsKey, "latency_sum_ms", rec.LatencyMs)
	_, _ = a.redis.HIncrBy(ctx, totalsKey, "latency_count", 1)
	if rec.Sensitive {
		_, _ = a.redis.HIncrBy(ctx, totalsKey, "sensitivity_hits", 1)
	}
	if rec.CountUsage {
		_, _ = a.redis.HIncrBy(ctx, totalsKey, "total_cost_micros", int64(rec.Cost*1e6))
		_, _ = a.redis.HIncrBy(ctx, totalsKey, "total_input_tokens", rec.InputTokens)
		_, _ = a.redis.HIncrBy(ctx, totalsKey, "total_output_tokens", rec.OutputTokens)
		_, _ = a.redis.HIncrBy(ctx, byProviderKy, rec.Provider, 1)
		_, _ = a.redis.HIncrBy(ctx, byModelKey, rec.Model, 1)
		_, _ = a.redis.HIncrBy(ctx, byBandKey, rec.Band, 1)
	}

	labels := map[string]string{"provider": rec.Provider, "model": rec.Model, "band": rec.Band}
	a.prom.counterInc("lattice_gateway_requests_total", labels)
	a.prom.histogramObserve("lattice_gateway_request_duration_ms", labels, float64(rec.LatencyMs))
}

func (a *redisAggregator) RecordCacheHit(ctx context.Context) {
	_, _ = a.redis.HIncrBy(ctx, totalsKey, "cache_hits", 1)
	a.prom.counterInc("lattice_gateway_cache_hits_total", nil)
}

func (a *redisAggregator) RecordCacheMiss(ctx context.Context) {
	_, _ = a.redis.HIncrBy(ctx, totalsKey, "cache_misses", 1)
	a.prom.counterInc("lattice_gateway_cache_misses_total", nil)
}

func (a *redisAggregator) Snapshot(ctx context.Context) (types.MetricsSnapshot, error) {
	totals, err := a.redis.HGetAll(ctx, totalsKey)
	if err != nil {
		return types.MetricsSnapshot{}, err
	}
	byProvider, err := a.redis.HGetAll(ctx, byProviderKy)
	if err != nil {
		return types.MetricsSnapshot{}, err
	}
	byModel, err := a.redis.HGetAll(ctx, byModelKey)
	if err != nil {
		return types.MetricsSnapshot{}, err
	}
	byBand, err := a.redis.HGetAll(ctx, byBandKey)
	if err != nil {
		return types.MetricsSnapshot{}, err
	}

	latencySum := parseInt(totals["latency_sum_ms"])
	latencyCount := parseInt(totals["latency_count"])
	avgLatency := float64(0)
	if latencyCount > 0 {
		avgLatency = float64(latencySum) / float64(latencyCount)
	}

	return types.MetricsSnapshot{
		TotalRequests:     parseInt(totals["total_requests"]),
		TotalCost:         float64(parseInt(totals["total_cost_micros"])) / 1e6,
		TotalInputTokens:  parseInt(totals["total_input_tokens"]),
		TotalOutputTokens: parseInt(totals["total_output_tokens"]),
		AvgLatencyMs:      avgLatency,
		CacheHits:         parseInt(totals["cache_hits"]),
		CacheMisses:       parseInt(totals["cache_misses"]),
		SensitivityHits:   parseInt(totals["sensitivity_hits"]),
		ByProvider:        parseIntMap(byProvider),
		ByModel:           parseIntMap(byModel),
		ByBand:            parseIntMap(byBand),
	}, nil
}

func (a *redisAggregator) Handler() http.HandlerFunc { return a.prom.handler() }

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseIntMap(m map[string]string) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = parseInt(v)
	}
	return out
}
