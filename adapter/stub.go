package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/agentrouter/lattice-gateway/types"
)

// Stub is a deterministic, in-process adapter used by tests and available
// as a zero-cost fallback candidate. It never performs network I/O.
type Stub struct{}

// NewStub returns the stub adapter.
func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string { return "stub" }

func (s *Stub) DefaultTimeout() time.Duration { return 5 * time.Second }

func (s *Stub) Plan(params Params, model string) (Plan, error) {
	if params.MaxTokens <= 0 {
		params.MaxTokens = 256
	}
	return Plan{Target: types.Candidate{Provider: s.Name(), Model: model}, Params: params}, nil
}

func (s *Stub) Execute(ctx context.Context, plan Plan, prompt string) (Result, error) {
	output := reply(prompt)
	return Result{
		OutputText:        output,
		PromptTokens:      wordCount(prompt),
		CompletionTokens:  wordCount(output),
		UpstreamLatencyMs: 5,
		Provenance: types.Provenance{
			UpstreamModel: plan.Target.Model,
			Mode:          "chat",
		},
	}, nil
}

// reply produces a canned, deterministic response so tests can assert on
// exact output text.
func reply(prompt string) string {
	switch strings.ToLower(strings.TrimSpace(prompt)) {
	case "say hi":
		return "Hi"
	case "":
		return ""
	default:
		return "Echo: " + strings.TrimSpace(prompt)
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
