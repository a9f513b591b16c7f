// Package pricing implements the pricing catalog (C1): a process-wide,
// immutable-after-load table of per-model input/output rates, used to turn
// token counts into a CostBreakdown.
//
// Grounded on the teacher's provider/pricing.go (PricingConfig,
// DefaultPricing, CalculateCost), generalized from the teacher's flat
// "provider/model" string keys and per-1M-token-only rates to the spec's
// {provider: {model: {input, output, unit}}} JSON/YAML shape with both
// per_1k and per_million units.
package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/agentrouter/lattice-gateway/types"
)

// Unit is the denominator pricing figures are quoted per.
type Unit string

const (
	UnitPer1K      Unit = "per_1k"
	UnitPerMillion Unit = "per_million"
)

// Entry is one (provider, model) pricing row.
type Entry struct {
	Provider    string  `json:"provider" yaml:"provider"`
	Model       string  `json:"model" yaml:"model"`
	InputPrice  float64 `json:"input_price" yaml:"input_price"`
	OutputPrice float64 `json:"output_price" yaml:"output_price"`
	Unit        Unit    `json:"unit" yaml:"unit"`
}

// fileFormat mirrors the §4.1 wire shape: providers[provider][model] = {...}.
type fileFormat struct {
	Providers map[string]map[string]struct {
		Input  float64 `json:"input" yaml:"input"`
		Output float64 `json:"output" yaml:"output"`
		Unit   Unit    `json:"unit" yaml:"unit"`
	} `json:"providers" yaml:"providers"`
	Version string `json:"version" yaml:"version"`
}

// Catalog is the immutable, process-wide pricing table.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry // key: lower(provider) + "/" + lower(model)
	version string
}

// New returns an empty catalog. Use Load or LoadDefault to populate it.
func New() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// LoadDefault seeds the catalog with a small built-in table covering the
// adapters this gateway ships (§4.5), so the gateway has sane pricing even
// before PRICING_FILE is read. Unknown models still resolve to zero cost
// rather than failing, per §4.1.
func LoadDefault() *Catalog {
	c := New()
	defaults := []Entry{
		{"openai", "gpt-4o", 2.50, 10.00, UnitPerMillion},
		{"openai", "gpt-4o-mini", 0.15, 0.60, UnitPerMillion},
		{"openai", "gpt-3.5-turbo", 0.50, 1.50, UnitPerMillion},
		{"anthropic", "claude-3-5-sonnet-20241022", 3.00, 15.00, UnitPerMillion},
		{"anthropic", "claude-3-5-haiku-20241022", 0.80, 4.00, UnitPerMillion},
		{"anthropic", "claude-3-opus-20240229", 15.00, 75.00, UnitPerMillion},
		{"google", "gemini-1.5-pro", 1.25, 5.00, UnitPerMillion},
		{"google", "gemini-1.5-flash", 0.075, 0.30, UnitPerMillion},
		{"ollama", "llama3", 0, 0, UnitPerMillion},
		{"stub", "stub-echo-1", 0, 0, UnitPerMillion},
	}
	for _, e := range defaults {
		c.entries[key(e.Provider, e.Model)] = e
	}
	return c
}

// Load reads a pricing file (JSON or YAML, sniffed by extension) and merges
// its entries into the catalog, overwriting anything already present.
func (c *Catalog) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pricing file: %w", err)
	}

	var ff fileFormat
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ff)
	default:
		err = json.Unmarshal(data, &ff)
	}
	if err != nil {
		return fmt.Errorf("parse pricing file %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = ff.Version
	for provider, models := range ff.Providers {
		for model, rate := range models {
			unit := rate.Unit
			if unit == "" {
				unit = UnitPerMillion
			}
			c.entries[key(provider, model)] = Entry{
				Provider:    provider,
				Model:       model,
				InputPrice:  rate.Input,
				OutputPrice: rate.Output,
				Unit:        unit,
			}
		}
	}
	return nil
}

func key(provider, model string) string {
	return strings.ToLower(provider) + "/" + strings.ToLower(model)
}

// lookup returns the entry for (provider, model), if any.
func (c *Catalog) lookup(provider, model string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key(provider, model)]
	return e, ok
}

// perToken converts a unit-denominated price to a per-token rate.
func perToken(price float64, unit Unit) float64 {
	switch unit {
	case UnitPer1K:
		return price / 1_000.0
	default: // per_million
		return price / 1_000_000.0
	}
}

// Cost computes the CostBreakdown for a call. Unknown (provider, model)
// combinations yield a zeroed breakdown that still preserves token counts
// and never fails the request (§4.1).
func (c *Catalog) Cost(provider, model string, inputTokens, outputTokens int) types.CostBreakdown {
	cb := types.CostBreakdown{
		Currency:     "USD",
		Provider:     provider,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}

	entry, ok := c.lookup(provider, model)
	if !ok {
		return cb
	}

	inputCost := float64(inputTokens) * perToken(entry.InputPrice, entry.Unit)
	outputCost := float64(outputTokens) * perToken(entry.OutputPrice, entry.Unit)

	cb.InputCost = round8(inputCost)
	cb.OutputCost = round8(outputCost)
	cb.TotalCost = round8(cb.InputCost + cb.OutputCost)

	c.mu.RLock()
	cb.PricingVersion = c.version
	c.mu.RUnlock()

	return cb
}

func round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}
