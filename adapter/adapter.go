// Package adapter implements the provider adapters (C5): a uniform
// plan/execute capability over OpenAI-chat, Anthropic-messages,
// Gemini-generateContent, a local Ollama backend, and a deterministic
// stub used by tests. Every adapter maps upstream failures onto the
// error taxonomy in errs so the routing pipeline never inspects a raw
// transport error.
//
// Grounded on the teacher's provider/provider.go (Provider interface,
// Registry, ChatRequest/ChatResponse shapes) generalized from an
// OpenAI-superset wire format to the plan/execute capability the spec
// calls for, and on provider/openai.go's pooled-HTTP-client construction.
package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentrouter/lattice-gateway/errs"
	"github.com/agentrouter/lattice-gateway/types"
)

// Params are the caller-supplied generation parameters a plan is built from.
type Params struct {
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Plan is the frozen, adapter-specific bundle produced by Plan and
// consumed by Execute.
type Plan struct {
	Target types.Candidate
	Params Params
}

// Result is what one upstream call produced.
type Result struct {
	OutputText        string
	PromptTokens      int
	CompletionTokens  int
	UpstreamLatencyMs int64
	UpstreamCostUSD   *float64
	Provenance        types.Provenance
}

// Adapter is the capability every provider connector implements.
type Adapter interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string
	// Plan applies defaults for an unset max_tokens and, in the
	// HTTP-backed adapters, an unset temperature; the system prompt is
	// passed through as given. Pure.
	Plan(params Params, model string) (Plan, error)
	// Execute performs one upstream call and returns usage. Errors are
	// always an *errs.Error carrying one of the taxonomy kinds.
	Execute(ctx context.Context, plan Plan, prompt string) (Result, error)
	// DefaultTimeout is this adapter's outer call bound (§5).
	DefaultTimeout() time.Duration
}

// Registry is the process-wide, immutable-after-construction map from
// provider id to adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its own Name().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter for a provider id, or (nil, false).
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// MustGet returns the adapter, or a *errs.Error of kind configuration if
// the provider is unregistered — the spec's "unknown providers raise
// configuration" rule (§9).
func (r *Registry) MustGet(name string) (Adapter, error) {
	a, ok := r.Get(name)
	if !ok {
		return nil, errs.NewWithProvider(errs.KindConfiguration,
			fmt.Sprintf("provider %q is not registered", name), name)
	}
	return a, nil
}

// List returns the names of every registered provider, for the
// /v1/providers introspection endpoint.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	return names
}
