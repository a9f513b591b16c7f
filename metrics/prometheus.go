// Prometheus-compatible counter/histogram registry and text exposition,
// adapted from the teacher's observability/metrics.go. Kept close to the
// original: Counter/Histogram primitives, label-keyed storage, and the
// manual-cumulative-bucket text Handler. Gauge and the wallet/provider-
// health/safety-violation trackers are dropped — this gateway has no
// wallet or safety-pipeline concept, and provider health is out of scope
// (§ Non-goals).
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing value.
type Counter struct {
	value int64
}

func (c *Counter) Inc()         { atomic.AddInt64(&c.value, 1) }
func (c *Counter) Add(n int64)  { atomic.AddInt64(&c.value, n) }
func (c *Counter) Value() int64 { return atomic.LoadInt64(&c.value) }

// Histogram tracks value distributions with configurable buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []int64 // per-bucket differential counts (+ Inf)
	sum     float64
	count   int64
}

func newHistogram(buckets []float64) *Histogram {
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)
	return &Histogram{buckets: sorted, counts: make([]int64, len(sorted)+1)}
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
			return
		}
	}
	h.counts[len(h.buckets)]++
}

func labelKey(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return strings.Join(parts, ",")
}

// registry is the Prometheus-compatible counter/histogram store backing
// the GET /metrics Prometheus-format export (additive to the JSON
// snapshot served at GET /v1/metrics).
type registry struct {
	mu             sync.RWMutex
	counters       map[string]map[string]*Counter
	histograms     map[string]map[string]*Histogram
	latencyBuckets []float64
}

func newRegistry() *registry {
	return &registry{
		counters:       make(map[string]map[string]*Counter),
		histograms:     make(map[string]map[string]*Histogram),
		latencyBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}
}

func (r *registry) counterAdd(name string, labels map[string]string, n int64) {
	r.getCounter(name, labels).Add(n)
}

func (r *registry) counterInc(name string, labels map[string]string) {
	r.getCounter(name, labels).Inc()
}

func (r *registry) getCounter(name string, labels map[string]string) *Counter {
	key := labelKey(labels)
	r.mu.RLock()
	if byName, ok := r.counters[name]; ok {
		if c, ok := byName[key]; ok {
			r.mu.RUnlock()
			return c
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counters[name]; !ok {
		r.counters[name] = make(map[string]*Counter)
	}
	if _, ok := r.counters[name][key]; !ok {
		r.counters[name][key] = &Counter{}
	}
	return r.counters[name][key]
}

func (r *registry) histogramObserve(name string, labels map[string]string, v float64) {
	r.getHistogram(name, labels).Observe(v)
}

func (r *registry) getHistogram(name string, labels map[string]string) *Histogram {
	key := labelKey(labels)
	r.mu.RLock()
	if byName, ok := r.histograms[name]; ok {
		if h, ok := byName[key]; ok {
			r.mu.RUnlock()
			return h
		}
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.histograms[name]; !ok {
		r.histograms[name] = make(map[string]*Histogram)
	}
	if _, ok := r.histograms[name][key]; !ok {
		r.histograms[name][key] = newHistogram(r.latencyBuckets)
	}
	return r.histograms[name][key]
}

// handler serves the registry in Prometheus text exposition format.
func (r *registry) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("# lattice-gateway metrics - %s\n\n", time.Now().UTC().Format(time.RFC3339)))

		r.mu.RLock()
		defer r.mu.RUnlock()

		for name, byLabel := range r.counters {
			sb.WriteString(fmt.Sprintf("# TYPE %s counter\n", name))
			for lk, c := range byLabel {
				if lk == "" {
					sb.WriteString(fmt.Sprintf("%s %d\n", name, c.Value()))
				} else {
					sb.WriteString(fmt.Sprintf("%s{%s} %d\n", name, lk, c.Value()))
				}
			}
			sb.WriteString("\n")
		}

		for name, byLabel := range r.histograms {
			sb.WriteString(fmt.Sprintf("# TYPE %s histogram\n", name))
			for lk, h := range byLabel {
				h.mu.Lock()
				prefix := name
				if lk != "" {
					prefix = fmt.Sprintf("%s{%s}", name, lk)
				}
				cumulative := int64(0)
				for i, b := range h.buckets {
					cumulative += h.counts[i]
					if lk != "" {
						sb.WriteString(fmt.Sprintf("%s_bucket{le=\"%g\",%s} %d\n", name, b, lk, cumulative))
					} else {
						sb.WriteString(fmt.Sprintf("%s_bucket{le=\"%g\"} %d\n", name, b, cumulative))
					}
				}
				cumulative += h.counts[len(h.buckets)]
				if lk != "" {
					sb.WriteString(fmt.Sprintf("%s_bucket{le=\"+Inf\",%s} %d\n", name, lk, cumulative))
				} else {
					sb.WriteString(fmt.Sprintf("%s_bucket{le=\"+Inf\"} %d\n", name, cumulative))
				}
				sb.WriteString(fmt.Sprintf("%s_sum %f\n", prefix, h.sum))
				sb.WriteString(fmt.Sprintf("%s_count %d\n", prefix, h.count))
				h.mu.Unlock()
			}
			sb.WriteString("\n")
		}

		_, _ = w.Write([]byte(sb.String()))
	}
}
