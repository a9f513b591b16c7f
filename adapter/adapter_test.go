package adapter

import (
	"context"
	"testing"

	"github.com/agentrouter/lattice-gateway/errs"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	stub := NewStub()
	r.Register(stub)

	got, ok := r.Get("stub")
	if !ok || got.Name() != "stub" {
		t.Fatalf("Get(stub) = (%v, %v), want the registered stub adapter", got, ok)
	}

	if _, ok := r.Get("nonexistent"); ok {
		t.Fatal("Get(nonexistent) = ok, want not found")
	}
}

func TestRegistryMustGetUnregisteredIsConfigurationError(t *testing.T) {
	r := NewRegistry()
	_, err := r.MustGet("nonexistent")
	if err == nil {
		t.Fatal("MustGet(nonexistent) = nil error, want configuration error")
	}
	ae, ok := errs.As(err)
	if !ok || ae.Kind != errs.KindConfiguration {
		t.Fatalf("MustGet error = %+v, want *errs.Error of kind configuration", err)
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	r.Register(NewStub())
	names := r.List()
	if len(names) != 1 || names[0] != "stub" {
		t.Fatalf("List() = %v, want [stub]", names)
	}
}

func TestStubPlanDefaultsMaxTokens(t *testing.T) {
	s := NewStub()
	plan, err := s.Plan(Params{}, "stub-echo-1")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Params.MaxTokens != 256 {
		t.Fatalf("Plan().Params.MaxTokens = %d, want 256", plan.Params.MaxTokens)
	}
	if plan.Target.Provider != "stub" || plan.Target.Model != "stub-echo-1" {
		t.Fatalf("Plan().Target = %+v, want stub/stub-echo-1", plan.Target)
	}
}

func TestStubExecuteIsDeterministic(t *testing.T) {
	s := NewStub()
	plan, _ := s.Plan(Params{}, "stub-echo-1")

	result, err := s.Execute(context.Background(), plan, "say hi")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.OutputText != "Hi" {
		t.Fatalf("OutputText = %q, want %q", result.OutputText, "Hi")
	}

	result2, err := s.Execute(context.Background(), plan, "say hi")
	if err != nil {
		t.Fatalf("Execute (second call): %v", err)
	}
	if result2.OutputText != result.OutputText {
		t.Fatalf("Execute is not deterministic: %q != %q", result2.OutputText, result.OutputText)
	}
}

func TestStubExecuteEchoesUnknownPrompt(t *testing.T) {
	s := NewStub()
	plan, _ := s.Plan(Params{}, "stub-echo-1")

	result, err := s.Execute(context.Background(), plan, "what is the capital of france")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := "Echo: what is the capital of france"
	if result.OutputText != want {
		t.Fatalf("OutputText = %q, want %q", result.OutputText, want)
	}
	if result.PromptTokens != 6 {
		t.Fatalf("PromptTokens = %d, want 6", result.PromptTokens)
	}
}
