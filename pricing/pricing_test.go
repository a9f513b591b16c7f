package pricing

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestCostUnknownModelIsZeroedButKeepsTokens(t *testing.T) {
	c := New()
	cb := c.Cost("openai", "no-such-model", 1000, 500)
	if cb.TotalCost != 0 || cb.InputCost != 0 || cb.OutputCost != 0 {
		t.Fatalf("Cost(unknown) = %+v, want zeroed cost fields", cb)
	}
	if cb.InputTokens != 1000 || cb.OutputTokens != 500 {
		t.Fatalf("Cost(unknown) lost token counts: %+v", cb)
	}
}

func TestLoadDefaultCostPerMillion(t *testing.T) {
	c := LoadDefault()
	cb := c.Cost("openai", "gpt-4o-mini", 1_000_000, 1_000_000)
	if math.Abs(cb.InputCost-0.15) > 1e-9 {
		t.Fatalf("InputCost = %v, want 0.15", cb.InputCost)
	}
	if math.Abs(cb.OutputCost-0.60) > 1e-9 {
		t.Fatalf("OutputCost = %v, want 0.60", cb.OutputCost)
	}
	if math.Abs(cb.TotalCost-0.75) > 1e-9 {
		t.Fatalf("TotalCost = %v, want 0.75", cb.TotalCost)
	}
}

func TestLoadMergesAndOverwrites(t *testing.T) {
	c := LoadDefault()

	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.json")
	content := `{
		"version": "2026-07-01",
		"providers": {
			"openai": {"gpt-4o-mini": {"input": 1.0, "output": 2.0, "unit": "per_1k"}},
			"customprovider": {"custom-model": {"input": 5.0, "output": 10.0, "unit": "per_million"}}
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp pricing file: %v", err)
	}

	if err := c.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Overwritten built-in entry, now per-1k priced.
	cb := c.Cost("openai", "gpt-4o-mini", 1000, 1000)
	if math.Abs(cb.InputCost-1.0) > 1e-9 || math.Abs(cb.OutputCost-2.0) > 1e-9 {
		t.Fatalf("overwritten entry = %+v, want input 1.0 output 2.0", cb)
	}
	if cb.PricingVersion != "2026-07-01" {
		t.Fatalf("PricingVersion = %q, want 2026-07-01", cb.PricingVersion)
	}

	// New entry merged in alongside the untouched built-ins.
	custom := c.Cost("customprovider", "custom-model", 1_000_000, 1_000_000)
	if math.Abs(custom.InputCost-5.0) > 1e-9 {
		t.Fatalf("custom entry InputCost = %v, want 5.0", custom.InputCost)
	}

	// Untouched built-in still resolves.
	sonnet := c.Cost("anthropic", "claude-3-5-sonnet-20241022", 1_000_000, 1_000_000)
	if math.Abs(sonnet.InputCost-3.00) > 1e-9 {
		t.Fatalf("untouched built-in InputCost = %v, want 3.00", sonnet.InputCost)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	c := New()
	if err := c.Load("/no/such/pricing/file.json"); err == nil {
		t.Fatal("Load(missing file) = nil error, want error")
	}
}
