// Package cloudforward implements the optional cloud forwarder (C12):
// a background worker that ships trace metadata to a remote ingestion
// endpoint, used by hosted/managed deployments that want centralized
// usage visibility across many self-run gateways.
//
// Grounded directly on original_source/lattice/cloud.py's CloudIngestor:
// an unbounded queue, a single daemon worker, a short-timeout POST, and
// silent (debug-logged) failure so an unreachable or slow ingestion
// endpoint never blocks the completion flow. The queue is a
// mutex-guarded slice with a condition variable rather than a Go
// channel, since channels are capacity-bounded and Enqueue must never
// block the caller the way queue.SimpleQueue.put never blocks in the
// original. The worker's start/stop lifecycle (a dedicated goroutine,
// a closed flag set by Shutdown, graceful drain) follows the shape of the
// teacher's observability/datadog.go flushLoop/Stop pair.
package cloudforward

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/config"
	"github.com/agentrouter/lattice-gateway/types"
)

const postTimeout = 2 * time.Second

// Forwarder ships types.TraceRecord payloads to a remote endpoint in the
// background. A disabled Forwarder's Enqueue is a no-op.
type Forwarder struct {
	enabled  bool
	endpoint string
	apiKey   string
	client   *http.Client
	log      zerolog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []types.TraceRecord
	closed   bool
	doneCh   chan struct{}
}

// New constructs and, if enabled, starts the forwarder's worker goroutine.
func New(cfg *config.Config, log zerolog.Logger) *Forwarder {
	f := &Forwarder{
		enabled:  cfg.CloudForwardEnabled,
		endpoint: strings.TrimRight(cfg.CloudForwardURL, "/"),
		apiKey:   cfg.CloudForwardAPIKey,
		client:   &http.Client{Timeout: postTimeout},
		log:      log.With().Str("component", "cloudforward").Logger(),
		doneCh:   make(chan struct{}),
	}
	f.cond = sync.NewCond(&f.mu)

	if f.enabled {
		go f.worker()
	} else {
		close(f.doneCh)
	}
	return f
}

// Enqueue submits a trace record for background ingestion. Never blocks
// and never fails visibly — a full, unreachable, or misconfigured
// ingestion endpoint must not affect the request path.
func (f *Forwarder) Enqueue(rec types.TraceRecord) {
	if !f.enabled {
		return
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, rec)
	f.mu.Unlock()
	f.cond.Signal()
}

// Shutdown signals the worker to drain the queue and exit, waiting up to
// ctx's deadline for it to finish.
func (f *Forwarder) Shutdown(ctx context.Context) {
	if !f.enabled {
		return
	}
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cond.Signal()

	select {
	case <-f.doneCh:
	case <-ctx.Done():
	}
}

func (f *Forwarder) worker() {
	defer close(f.doneCh)

	for {
		rec, ok := f.next()
		if !ok {
			return
		}
		f.post(rec)
	}
}

// next blocks until an item is available, or returns (zero, false) once
// the queue has been closed and fully drained.
func (f *Forwarder) next() (types.TraceRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 {
		if f.closed {
			return types.TraceRecord{}, false
		}
		f.cond.Wait()
	}
	rec := f.queue[0]
	f.queue = f.queue[1:]
	return rec, true
}

func (f *Forwarder) post(rec types.TraceRecord) {
	body, err := json.Marshal(rec)
	if err != nil {
		f.log.Debug().Err(err).Msg("cloud_ingest_marshal_failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		f.log.Debug().Err(err).Msg("cloud_ingest_request_build_failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug().Err(err).Msg("cloud_ingest_failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		f.log.Debug().Int("status", resp.StatusCode).Msg("cloud_ingest_failed")
	}
}
