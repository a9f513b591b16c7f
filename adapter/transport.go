// Transport pooling shared by every HTTP-backed adapter.
//
// Adapted from the teacher's provider/pool.go ConnectionPool, trimmed to
// the knobs this gateway actually tunes (idle connections, idle timeout);
// the per-provider metrics round-tripper is dropped because the metrics
// aggregator (C8) already records per-call latency at the pipeline level,
// so a second counting layer inside the transport would double-book it.
package adapter

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a pooled *http.Client tuned for one upstream host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}
