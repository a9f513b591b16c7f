// Ollama adapter — talks to a local/self-hosted Ollama server's
// /api/generate endpoint. No API key; the base URL is operator-
// configured (defaults to the standard local port) since Ollama has
// no public multi-tenant endpoint.
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

const ollamaDefaultBaseURL = "http://localhost:11434"

// Ollama implements Adapter for a local Ollama server.
type Ollama struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewOllama(baseURL string, timeout time.Duration) *Ollama {
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Ollama{
		baseURL: baseURL,
		client:  NewHTTPClient(timeout),
		timeout: timeout,
	}
}

func (o *Ollama) Name() string                 { return "ollama" }
func (o *Ollama) DefaultTimeout() time.Duration { return o.timeout }

func (o *Ollama) Plan(params Params, model string) (Plan, error) {
	if params.MaxTokens <= 0 {
		params.MaxTokens = 1024
	}
	if params.Temperature == 0 {
		params.Temperature = 0.7
	}
	return Plan{Target: types.Candidate{Provider: o.Name(), Model: model}, Params: params}, nil
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (o *Ollama) Execute(ctx context.Context, plan Plan, prompt string) (Result, error) {
	reqBody := ollamaRequest{
		Model:  plan.Target.Model,
		Prompt: prompt,
		System: plan.Params.SystemPrompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: plan.Params.Temperature,
			NumPredict:  plan.Params.MaxTokens,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "ollama: marshal request: "+err.Error(), o.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "ollama: build request: "+err.Error(), o.Name())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return Result{}, classifyTransportError(o.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, classifyHTTPStatus(o.Name(), resp.StatusCode, resp.Body)
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "ollama: decode response: "+err.Error(), o.Name())
	}

	promptTokens, completionTokens, estimated := parsed.PromptEvalCount, parsed.EvalCount, false
	if promptTokens == 0 && completionTokens == 0 {
		promptTokens = EstimateTokens(o.Name(), prompt)
		completionTokens = EstimateTokens(o.Name(), parsed.Response)
		estimated = true
	}

	return Result{
		OutputText:        parsed.Response,
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
