package bands

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempBands(t *testing.T, ext, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bands"+ext)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp bands file: %v", err)
	}
	return path
}

const jsonBands = `{
  "default_band": "mid",
  "bands": {
    "low": {"description": "cheap", "models": [{"provider": "openai", "model": "gpt-4o-mini"}]},
    "mid": {"description": "balanced", "models": [{"provider": "anthropic", "model": "claude-haiku"}]},
    "legacy_complex": {"description": "retired alias", "models": [{"provider": "openai", "model": "gpt-4o"}]},
    "bogus": {"description": "unrecognized", "models": [{"provider": "x", "model": "y"}]}
  }
}`

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want Name
		ok   bool
	}{
		{"simple", Low, true},
		{"LOW", Low, true},
		{" moderate ", Mid, true},
		{"complex", High, true},
		{"long_context", High, true},
		{"unknown", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := Normalize(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestLoadJSONSkipsUnrecognizedBandAndResolvesAliases(t *testing.T) {
	path := writeTempBands(t, ".json", jsonBands)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if reg.DefaultBand() != Mid {
		t.Fatalf("DefaultBand() = %q, want %q", reg.DefaultBand(), Mid)
	}

	// "legacy_complex" isn't a recognized section key itself, so it's
	// skipped along with "bogus" — only low/mid parsed.
	if len(reg.List()) != 2 {
		t.Fatalf("List() len = %d, want 2 (bogus and legacy_complex sections should be skipped)", len(reg.List()))
	}

	low := reg.Resolve("simple")
	if low.Name != Low || len(low.Models) != 1 || low.Models[0].Model != "gpt-4o-mini" {
		t.Fatalf("Resolve(simple) = %+v, want low band with gpt-4o-mini", low)
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	path := writeTempBands(t, ".json", jsonBands)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := reg.Resolve("nonexistent-band")
	if got.Name != reg.DefaultBand() {
		t.Fatalf("Resolve(unknown) = %q, want default %q", got.Name, reg.DefaultBand())
	}

	got = reg.Resolve("")
	if got.Name != reg.DefaultBand() {
		t.Fatalf("Resolve(\"\") = %q, want default %q", got.Name, reg.DefaultBand())
	}
}

func TestFindProvider(t *testing.T) {
	path := writeTempBands(t, ".json", jsonBands)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	provider, ok := reg.FindProvider("GPT-4O-MINI")
	if !ok || provider != "openai" {
		t.Fatalf("FindProvider(case-insensitive) = (%q, %v), want (openai, true)", provider, ok)
	}

	if _, ok := reg.FindProvider("no-such-model"); ok {
		t.Fatalf("FindProvider(missing model) = ok, want not found")
	}
}

func TestLoadYAML(t *testing.T) {
	yamlContent := "default_band: low\nbands:\n  low:\n    description: cheap\n    models:\n      - provider: ollama\n        model: llama3\n"
	path := writeTempBands(t, ".yaml", yamlContent)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(yaml): %v", err)
	}
	if reg.DefaultBand() != Low {
		t.Fatalf("DefaultBand() = %q, want %q", reg.DefaultBand(), Low)
	}
}

func TestLoadRejectsEmptyBandsFile(t *testing.T) {
	path := writeTempBands(t, ".json", `{"default_band": "mid", "bands": {}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load(empty bands) = nil error, want error")
	}
}
