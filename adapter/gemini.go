// Gemini-generateContent adapter.
//
// Same shape as openai.go/anthropic.go, adjusted for Google's
// generateContent wire format: API key as a query parameter, content
// nested under contents[].parts[].text, system instruction as a
// separate top-level field, and usage under usageMetadata.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/agentrouter/lattice-gateway/errs"
	"github.com/agentrouter/lattice-gateway/types"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini implements Adapter for Google's Gemini generateContent API.
type Gemini struct {
	apiKey  string
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewGemini(apiKey string, timeout time.Duration) *Gemini {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		apiKey:  apiKey,
		baseURL: geminiBaseURL,
		client:  NewHTTPClient(timeout),
		timeout: timeout,
	}
}

func (g *Gemini) Name() string                 { return "google" }
func (g *Gemini) DefaultTimeout() time.Duration { return g.timeout }

func (g *Gemini) Plan(params Params, model string) (Plan, error) {
	if params.MaxTokens <= 0 {
		params.MaxTokens = 1024
	}
	if params.Temperature == 0 {
		params.Temperature = 0.7
	}
	return Plan{Target: types.Candidate{Provider: g.Name(), Model: model}, Params: params}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (g *Gemini) Execute(ctx context.Context, plan Plan, prompt string) (Result, error) {
	if g.apiKey == "" {
		return Result{}, errs.NewWithProvider(errs.KindConfiguration, "google: missing API key", g.Name())
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: plan.Params.MaxTokens,
			Temperature:     plan.Params.Temperature,
		},
	}
	if plan.Params.SystemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: plan.Params.SystemPrompt}}}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "google: marshal request: "+err.Error(), g.Name())
	}

	endpoint := g.baseURL + "/models/" + url.PathEscape(plan.Target.Model) + ":generateContent?key=" + url.QueryEscape(g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "google: build request: "+err.Error(), g.Name())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return Result{}, classifyTransportError(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, classifyHTTPStatus(g.Name(), resp.StatusCode, resp.Body)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "google: decode response: "+err.Error(), g.Name())
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "google: empty candidates", g.Name())
	}

	output := parsed.Candidates[0].Content.Parts[0].Text
	promptTokens, completionTokens, estimated := parsed.UsageMetadata.PromptTokenCount, parsed.UsageMetadata.CandidatesTokenCount, false
	if promptTokens == 0 && completionTokens == 0 {
		promptTokens = EstimateTokens(g.Name(), prompt)
		completionTokens = EstimateTokens(g.Name(), output)
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
