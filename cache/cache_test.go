package cache

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/types"
)

func TestKeyIsStableAndCaseInsensitive(t *testing.T) {
	a := Key("Hello World", "OpenAI", "GPT-4O", "Low")
	b := Key("  hello world  ", "openai", "gpt-4o", "low")
	if a != b {
		t.Fatalf("Key() not normalized: %q != %q", a, b)
	}
}

func TestKeyDiffersOnBand(t *testing.T) {
	a := Key("hello", "openai", "gpt-4o", "low")
	b := Key("hello", "openai", "gpt-4o", "mid")
	if a == b {
		t.Fatal("Key() identical across different bands, want distinct keys")
	}
}

func TestKeyIsDeterministicForIdenticalInputs(t *testing.T) {
	// Same four inputs always produce the same key regardless of call site.
	first := Key("prompt", "anthropic", "claude-haiku", "mid")
	second := Key("prompt", "anthropic", "claude-haiku", "mid")
	if first != second {
		t.Fatal("Key() not deterministic for identical inputs")
	}
}

func TestDisabledCacheWithNilRedisAlwaysMisses(t *testing.T) {
	log := zerolog.New(io.Discard)
	c := New(nil, 60, true, log)
	if c.Enabled() {
		t.Fatal("Enabled() = true with nil redis client, want false")
	}

	key := Key("hello", "openai", "gpt-4o", "low")
	_, ok := c.Get(context.Background(), key)
	if ok {
		t.Fatal("Get() on disabled cache = hit, want miss")
	}

	// Set on a disabled cache must not panic even without a redis client.
	c.Set(context.Background(), key, types.CompletionResponse{Text: "hi"})
}

func TestCacheDisabledWhenTTLZero(t *testing.T) {
	log := zerolog.New(io.Discard)
	c := New(nil, 0, true, log)
	if c.Enabled() {
		t.Fatal("Enabled() = true with zero TTL, want false")
	}
}
