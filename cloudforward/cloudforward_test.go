package cloudforward

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/config"
	"github.com/agentrouter/lattice-gateway/types"
)

func TestDisabledForwarderEnqueueIsNoOp(t *testing.T) {
	log := zerolog.New(io.Discard)
	f := New(&config.Config{CloudForwardEnabled: false}, log)

	// Must not panic or block even though no worker goroutine is running.
	f.Enqueue(types.TraceRecord{ID: "1"})
	f.Shutdown(context.Background())
}

func TestEnabledForwarderPostsToEndpoint(t *testing.T) {
	var mu sync.Mutex
	var received []types.TraceRecord
	authHeader := ""

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		authHeader = r.Header.Get("Authorization")
		var rec types.TraceRecord
		_ = json.NewDecoder(r.Body).Decode(&rec)
		received = append(received, rec)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	log := zerolog.New(io.Discard)
	f := New(&config.Config{CloudForwardEnabled: true, CloudForwardURL: srv.URL, CloudForwardAPIKey: "secret-key"}, log)

	f.Enqueue(types.TraceRecord{ID: "abc"})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f.Shutdown(shutdownCtx)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].ID != "abc" {
		t.Fatalf("received = %+v, want one record with ID abc", received)
	}
	if authHeader != "Bearer secret-key" {
		t.Fatalf("Authorization header = %q, want %q", authHeader, "Bearer secret-key")
	}
}

func TestForwarderSurvivesUnreachableEndpoint(t *testing.T) {
	log := zerolog.New(io.Discard)
	f := New(&config.Config{CloudForwardEnabled: true, CloudForwardURL: "http://127.0.0.1:1"}, log)

	f.Enqueue(types.TraceRecord{ID: "1"})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	f.Shutdown(shutdownCtx)
	// Reaching here without a timeout/panic is the assertion: a dead
	// endpoint must never block shutdown or the request path.
}
