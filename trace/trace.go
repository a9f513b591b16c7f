// Package trace implements the trace sink (C10): a batching pipeline
// that records one types.TraceRecord per completed (or failed) pipeline
// run, grounded on the teacher's analytics/ingestion.go Pipeline —
// channel buffer, ticker-driven batch flush, bounded retries — trimmed
// from that file's three parallel event types (request/cost/wallet,
// which belong to a billing system this gateway does not have) down to
// the single TraceRecord stream the spec calls for.
package trace

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/types"
)

// Sink is the destination for trace records (structured logs, an
// external collector, ...).
type Sink interface {
	WriteTraces(ctx context.Context, records []types.TraceRecord) error
	Close() error
}

// Config controls batching and backpressure behavior.
type Config struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

// DefaultConfig returns sane defaults for a single-process gateway.
func DefaultConfig() Config {
	return Config{
		BufferSize:    10000,
		BatchSize:     200,
		FlushInterval: 5 * time.Second,
		MaxRetries:    2,
		RetryDelay:    250 * time.Millisecond,
	}
}

// Pipeline is the async trace ingestion engine. Emit is non-blocking: a
// full buffer drops the record and logs a warning rather than stalling
// the request path — the routing pipeline must never wait on tracing.
type Pipeline struct {
	log    zerolog.Logger
	cfg    Config
	sink   Sink
	ch     chan types.TraceRecord
	wg     sync.WaitGroup
	cancel context.CancelFunc

	received int64
	written  int64
	dropped  int64
}

// NewPipeline constructs a pipeline over sink and starts its worker.
func NewPipeline(ctx context.Context, sink Sink, log zerolog.Logger, cfg ...Config) *Pipeline {
	c := DefaultConfig()
	if len(cfg) > 0 {
		c = cfg[0]
	}
	p := &Pipeline{
		log:  log.With().Str("component", "trace").Logger(),
		cfg:  c,
		sink: sink,
		ch:   make(chan types.TraceRecord, c.BufferSize),
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go p.worker(runCtx)
	return p
}

// Emit submits a trace record. Never blocks, never returns an error —
// tracing failures are logged and swallowed (§4.10).
func (p *Pipeline) Emit(rec types.TraceRecord) {
	select {
	case p.ch <- rec:
		atomic.AddInt64(&p.received, 1)
	default:
		atomic.AddInt64(&p.dropped, 1)
		p.log.Warn().Str("id", rec.ID).Msg("trace record dropped: buffer full")
	}
}

// Stop drains remaining records and closes the sink.
func (p *Pipeline) Stop() {
	p.cancel()
	p.wg.Wait()
	if p.sink != nil {
		_ = p.sink.Close()
	}
	p.log.Info().
		Int64("received", atomic.LoadInt64(&p.received)).
		Int64("written", atomic.LoadInt64(&p.written)).
		Int64("dropped", atomic.LoadInt64(&p.dropped)).
		Msg("trace pipeline stopped")
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]types.TraceRecord, 0, p.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			p.drain(batch)
			return
		case rec := <-p.ch:
			batch = append(batch, rec)
			if len(batch) >= p.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (p *Pipeline) drain(batch []types.TraceRecord) {
	for {
		select {
		case rec := <-p.ch:
			batch = append(batch, rec)
			if len(batch) >= p.cfg.BatchSize {
				p.flush(batch)
				batch = batch[:0]
			}
		default:
			if len(batch) > 0 {
				p.flush(batch)
			}
			return
		}
	}
}

func (p *Pipeline) flush(batch []types.TraceRecord) {
	toWrite := make([]types.TraceRecord, len(batch))
	copy(toWrite, batch)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		err = p.sink.WriteTraces(ctx, toWrite)
		if err == nil {
			atomic.AddInt64(&p.written, int64(len(toWrite)))
			return
		}
		p.log.Warn().Err(err).Int("attempt", attempt+1).Int("batch_size", len(toWrite)).Msg("trace flush failed")
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.cfg.RetryDelay * time.Duration(1<<uint(attempt)))
		}
	}
	atomic.AddInt64(&p.dropped, int64(len(toWrite)))
	p.log.Error().Err(err).Int("batch_size", len(toWrite)).Msg("trace batch dropped after retries")
}

// ─── Log sink ───────────────────────────────────────────────

// LogSink writes trace records as structured JSON logs — the default,
// and a safe fallback when no external collector is configured.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("sink", "log").Logger()}
}

func (s *LogSink) WriteTraces(_ context.Context, records []types.TraceRecord) error {
	for _, rec := range records {
		data, _ := json.Marshal(rec)
		s.log.Debug().RawJSON("trace", data).Msg("trace_record")
	}
	return nil
}

func (s *LogSink) Close() error { return nil }

// ─── Collector sink ─────────────────────────────────────────

// Collector is an externally supplied batch-write capability (e.g. a
// warehouse client) the operator wires in at startup.
type Collector interface {
	WriteBatch(ctx context.Context, records []types.TraceRecord) error
	Close() error
}

// CollectorSink adapts an injected Collector to the Sink interface.
type CollectorSink struct {
	collector Collector
}

func NewCollectorSink(c Collector) *CollectorSink {
	return &CollectorSink{collector: c}
}

func (s *CollectorSink) WriteTraces(ctx context.Context, records []types.TraceRecord) error {
	return s.collector.WriteBatch(ctx, records)
}

func (s *CollectorSink) Close() error { return s.collector.Close() }
