// Anthropic-messages adapter.
//
// Same pooled-client/status-mapping shape as openai.go, adjusted for
// Anthropic's messages wire format: x-api-key + anthropic-version
// headers instead of bearer auth, system prompt as a top-level field
// rather than a system-role message, and usage reported as
// input_tokens/output_tokens.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/agentrouter/lattice-gateway/errs"
	"github.com/agentrouter/lattice-gateway/types"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"
const anthropicVersion = "2023-06-01"

// Anthropic implements Adapter for Anthropic's messages API.
type Anthropic struct {
	apiKey  string
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewAnthropic(apiKey string, timeout time.Duration) *Anthropic {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Anthropic{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		client:  NewHTTPClient(timeout),
		timeout: timeout,
	}
}

func (a *Anthropic) Name() string                 { return "anthropic" }
func (a *Anthropic) DefaultTimeout() time.Duration { return a.timeout }

func (a *Anthropic) Plan(params Params, model string) (Plan, error) {
	if params.MaxTokens <= 0 {
		params.MaxTokens = 1024
	}
	if params.Temperature == 0 {
		params.Temperature = 0.7
	}
	return Plan{Target: types.Candidate{Provider: a.Name(), Model: model}, Params: params}, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a *Anthropic) Execute(ctx context.Context, plan Plan, prompt string) (Result, error) {
	if a.apiKey == "" {
		return Result{}, errs.NewWithProvider(errs.KindConfiguration, "anthropic: missing API key", a.Name())
	}

	reqBody := anthropicRequest{
		Model:       plan.Target.Model,
		System:      plan.Params.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens:   plan.Params.MaxTokens,
		Temperature: plan.Params.Temperature,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "anthropic: marshal request: "+err.Error(), a.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "anthropic: build request: "+err.Error(), a.Name())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := a.client.Do(httpReq)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return Result{}, classifyTransportError(a.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, classifyHTTPStatus(a.Name(), resp.StatusCode, resp.Body)
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "anthropic: decode response: "+err.Error(), a.Name())
	}
	if len(parsed.Content) == 0 {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "anthropic: empty content", a.Name())
	}

	output := parsed.Content[0].Text
	promptTokens, completionTokens, estimated := parsed.Usage.InputTokens, parsed.Usage.OutputTokens, false
	if promptTokens == 0 && completionTokens == 0 {
		promptTokens = EstimateTokens(a.Name(), prompt)
		completionTokens = EstimateTokens(a.Name(), output)
		estimated = true
	}

	return Result{
		OutputText:        output,
		PromptTokens:      promptTokens,
		CompletionTokens:  completionTokens,
		UpstreamLatencyMs: latency,
		Provenance: types.Provenance{
			UpstreamModel:   plan.Target.Model,
			Mode:            "chat",
			EstimatedTokens: estimated,
		},
	}, nil
}
