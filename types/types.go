// Package types holds the data model shared across the routing pipeline and
// its collaborators (§3 of the design spec): requests, responses, cost and
// usage breakdowns, routing decisions, trace records, and the metrics
// snapshot. Keeping these in one leaf package lets pricing, bands, adapter,
// cache, metrics, and trace all depend on a single, stable vocabulary
// without importing the pipeline package itself.
package types

import "time"

// CompletionRequest is the immutable input to one routing pipeline run.
type CompletionRequest struct {
	Prompt      string                 `json:"prompt"`
	Band        string                 `json:"band,omitempty"`
	Model       string                 `json:"model,omitempty"`
	Provider    string                 `json:"provider,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Temperature float64                `json:"temperature,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Candidate is a (provider, model) pair eligible to serve a request.
type Candidate struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Usage reports prompt/completion/total token counts.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// CostBreakdown is the fully itemized cost of one call, rounded to 8 decimals.
type CostBreakdown struct {
	Currency       string  `json:"currency"`
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	InputTokens    int     `json:"input_tokens"`
	OutputTokens   int     `json:"output_tokens"`
	InputCost      float64 `json:"input_cost"`
	OutputCost     float64 `json:"output_cost"`
	TotalCost      float64 `json:"total_cost"`
	PricingVersion string  `json:"pricing_version,omitempty"`
}

// Provenance carries adapter-reported metadata for auditability.
type Provenance struct {
	UpstreamModel   string `json:"upstream_model"`
	Mode            string `json:"mode"`
	EstimatedTokens bool   `json:"estimated_tokens"`
}

// RoutingDecision records which candidate served the request and why.
type RoutingDecision struct {
	Reason     string      `json:"reason"`
	Candidates []Candidate `json:"candidates"`
	Chosen     Candidate   `json:"chosen"`
}

// CompletionResponse is the normalized result returned to the caller.
type CompletionResponse struct {
	Text      string          `json:"text"`
	Provider  string          `json:"provider"`
	Model     string          `json:"model"`
	Band      string          `json:"band"`
	LatencyMs int64           `json:"latency_ms"`
	Usage     Usage           `json:"usage"`
	Cost      CostBreakdown   `json:"cost"`
	Tags      []string        `json:"tags"`
	Routing   RoutingDecision `json:"routing"`

	// Provenance is carried for trace emission; it is not part of the
	// contractual response shape documented in §3 but is attached so the
	// HTTP handler and trace sink can both read it off one value.
	Provenance Provenance `json:"-"`
}

// CachedEntry is the JSON-encoded cache payload: the response plus the
// routing rationale it was produced under.
type CachedEntry struct {
	Response CompletionResponse `json:"response"`
}

// TraceRecord is the structured record emitted to the trace sink.
type TraceRecord struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Input            string    `json:"input"`
	Output           string    `json:"output"`
	LatencyMs        int64     `json:"latency_ms"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Cost             float64   `json:"cost"`
	Band             string    `json:"band"`
	RequestedBand    string    `json:"requested_band"`
	InferredBand     string    `json:"inferred_band"`
	// InferredBandInternal carries the long_context/complex internal label
	// (§9 open question) — never surfaced on CompletionResponse.Band.
	InferredBandInternal string `json:"inferred_band_internal,omitempty"`
	RouteSource           string `json:"route_source"`
	Plan                  string `json:"plan,omitempty"`
	Provenance            string `json:"provenance,omitempty"`
	Status                string `json:"status"`
	ErrorMessage          string `json:"error_message,omitempty"`
}

// MetricsSnapshot is the JSON shape returned by GET /v1/metrics.
type MetricsSnapshot struct {
	TotalRequests    int64              `json:"total_requests"`
	TotalCost        float64            `json:"total_cost"`
	TotalInputTokens int64              `json:"total_input_tokens"`
	TotalOutputTokens int64             `json:"total_output_tokens"`
	AvgLatencyMs     float64            `json:"avg_latency_ms"`
	CacheHits        int64              `json:"cache_hits"`
	CacheMisses      int64              `json:"cache_misses"`
	SensitivityHits  int64              `json:"sensitivity_hits"`
	ByProvider       map[string]int64   `json:"by_provider"`
	ByModel          map[string]int64   `json:"by_model"`
	ByBand           map[string]int64   `json:"by_band"`
}
