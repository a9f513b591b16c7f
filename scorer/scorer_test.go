package scorer

import (
	"strings"
	"testing"

	"github.com/agentrouter/lattice-gateway/bands"
)

func TestScoreBounds(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
	}{
		{"empty", ""},
		{"short", "hi"},
		{"long", strings.Repeat("word ", 2000)},
		{"symbols", strings.Repeat("{a=b+c-d}", 200)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Score(tc.prompt)
			if s < 0 || s > 1 {
				t.Fatalf("Score(%q) = %v, want in [0,1]", tc.name, s)
			}
		})
	}
}

func TestScoreEmptyIsZero(t *testing.T) {
	if got := Score(""); got != 0 {
		t.Fatalf("Score(\"\") = %v, want 0", got)
	}
}

func TestInternalBand(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"trivial greeting", "hi there", "simple"},
		{"long context", strings.Repeat("a", 4500), "long_context"},
		{"risk keywords heavy", "analyze optimize summarize compare design explain this architecture", "complex"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := InternalBand(tc.prompt); got != tc.want {
				t.Fatalf("InternalBand(%q) = %q, want %q", tc.prompt, got, tc.want)
			}
		})
	}
}

func TestBandCollapsesInternalLabels(t *testing.T) {
	longPrompt := strings.Repeat("a", 4500)
	if got := Band(longPrompt); got != bands.High {
		t.Fatalf("Band(long_context prompt) = %q, want %q", got, bands.High)
	}

	complexPrompt := "analyze optimize summarize compare design explain this architecture decision"
	if got := Band(complexPrompt); got != bands.High {
		t.Fatalf("Band(complex prompt) = %q, want %q", got, bands.High)
	}

	simplePrompt := "hi"
	if got := Band(simplePrompt); got != bands.Low {
		t.Fatalf("Band(simple prompt) = %q, want %q", got, bands.Low)
	}
}
