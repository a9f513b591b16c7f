package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/adapter"
	"github.com/agentrouter/lattice-gateway/bands"
	"github.com/agentrouter/lattice-gateway/cache"
	"github.com/agentrouter/lattice-gateway/cloudforward"
	"github.com/agentrouter/lattice-gateway/config"
	"github.com/agentrouter/lattice-gateway/errs"
	"github.com/agentrouter/lattice-gateway/metrics"
	"github.com/agentrouter/lattice-gateway/pricing"
	"github.com/agentrouter/lattice-gateway/trace"
	"github.com/agentrouter/lattice-gateway/types"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()

	dir := t.TempDir()
	bandsPath := filepath.Join(dir, "bands.json")
	bandsContent := `{
		"default_band": "low",
		"bands": {
			"low": {"description": "cheap", "models": [{"provider": "stub", "model": "stub-echo-1"}]},
			"mid": {"description": "balanced", "models": [{"provider": "stub", "model": "stub-echo-1"}]},
			"high": {"description": "best", "models": [{"provider": "stub", "model": "stub-echo-1"}]}
		}
	}`
	if err := os.WriteFile(bandsPath, []byte(bandsContent), 0o644); err != nil {
		t.Fatalf("write bands file: %v", err)
	}
	bandsReg, err := bands.Load(bandsPath)
	if err != nil {
		t.Fatalf("bands.Load: %v", err)
	}

	pricingCat := pricing.LoadDefault()

	adapters := adapter.NewRegistry()
	adapters.Register(adapter.NewStub())

	log := zerolog.New(io.Discard)
	respCache := cache.New(nil, 60, false, log)
	metricsAgg := metrics.New(nil)
	tracePipeline := trace.NewPipeline(context.Background(), trace.NewLogSink(log), log)
	t.Cleanup(tracePipeline.Stop)
	cloudForwarder := cloudforward.New(&config.Config{CloudForwardEnabled: false}, log)

	return New(bandsReg, pricingCat, adapters, respCache, metricsAgg, tracePipeline, cloudForwarder, log)
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	p := testPipeline(t)
	_, err := p.Run(context.Background(), types.CompletionRequest{Prompt: "   "})
	if err == nil {
		t.Fatal("Run(empty prompt) = nil error, want provider_validation error")
	}
	ae, ok := errs.As(err)
	if !ok || ae.Kind != errs.KindProviderValidation {
		t.Fatalf("Run(empty prompt) error = %+v, want provider_validation", err)
	}
}

func TestRunResolvesDefaultBandAndDispatchesToStub(t *testing.T) {
	p := testPipeline(t)
	resp, err := p.Run(context.Background(), types.CompletionRequest{Prompt: "say hi"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Provider != "stub" || resp.Model != "stub-echo-1" {
		t.Fatalf("Run() candidate = %s/%s, want stub/stub-echo-1", resp.Provider, resp.Model)
	}
	if resp.Text != "Hi" {
		t.Fatalf("Run().Text = %q, want %q", resp.Text, "Hi")
	}
	if resp.Band != "low" {
		t.Fatalf("Run().Band = %q, want low", resp.Band)
	}
}

func TestRunHonorsRequestedBand(t *testing.T) {
	p := testPipeline(t)
	resp, err := p.Run(context.Background(), types.CompletionRequest{Prompt: "say hi", Band: "high"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Band != "high" {
		t.Fatalf("Run().Band = %q, want high", resp.Band)
	}
	if want := "band='high' (user)"; resp.Routing.Reason != want {
		t.Fatalf("Run().Routing.Reason = %q, want %q", resp.Routing.Reason, want)
	}
}

func TestRunForcedModelUnknownIsProviderValidation(t *testing.T) {
	p := testPipeline(t)
	_, err := p.Run(context.Background(), types.CompletionRequest{Prompt: "hi", Model: "no-such-model"})
	if err == nil {
		t.Fatal("Run(unknown forced model) = nil error, want provider_validation")
	}
	ae, ok := errs.As(err)
	if !ok || ae.Kind != errs.KindProviderValidation {
		t.Fatalf("Run(unknown forced model) error = %+v, want provider_validation", err)
	}
}

func TestRunForcedModelResolvesProviderFromBands(t *testing.T) {
	p := testPipeline(t)
	resp, err := p.Run(context.Background(), types.CompletionRequest{Prompt: "say hi", Model: "stub-echo-1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Provider != "stub" {
		t.Fatalf("Run().Provider = %q, want stub (resolved from bands)", resp.Provider)
	}
	if want := "model override='stub-echo-1'"; resp.Routing.Reason != want {
		t.Fatalf("Run().Routing.Reason = %q, want %q", resp.Routing.Reason, want)
	}
}

func TestRunTagsSensitivePrompt(t *testing.T) {
	p := testPipeline(t)
	resp, err := p.Run(context.Background(), types.CompletionRequest{Prompt: "email me at jane@example.com"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, tag := range resp.Tags {
		if tag == "PII_EMAIL" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Run().Tags = %v, want PII_EMAIL present", resp.Tags)
	}
}
