// OpenAI-chat adapter.
//
// Adapted from the teacher's provider/openai.go (pooled client, bearer
// auth, POST /chat/completions, status-code-driven error mapping),
// generalized from the teacher's full OpenAI-superset ChatRequest/
// ChatResponse wire shape down to the single-prompt plan/execute
// capability this gateway's pipeline calls.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentrouter/lattice-gateway/errs"
	"github.com/agentrouter/lattice-gateway/types"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAI implements Adapter for OpenAI's chat completions API.
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewOpenAI constructs the adapter. apiKey must be non-empty — the caller
// (main's provider registration, mirroring the teacher's registerProviders)
// only registers this adapter when OPENAI_API_KEY is set.
func NewOpenAI(apiKey string, timeout time.Duration) *OpenAI {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		client:  NewHTTPClient(timeout),
		timeout: timeout,
	}
}

func (o *OpenAI) Name() string                 { return "openai" }
func (o *OpenAI) DefaultTimeout() time.Duration { return o.timeout }

func (o *OpenAI) Plan(params Params, model string) (Plan, error) {
	if params.MaxTokens <= 0 {
		params.MaxTokens = 1024
	}
	if params.Temperature == 0 {
		params.Temperature = 0.7
	}
	return Plan{Target: types.Candidate{Provider: o.Name(), Model: model}, Params: params}, nil
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (o *OpenAI) Execute(ctx context.Context, plan Plan, prompt string) (Result, error) {
	if o.apiKey == "" {
		return Result{}, errs.NewWithProvider(errs.KindConfiguration, "openai: missing API key", o.Name())
	}

	messages := []openAIChatMessage{}
	if plan.Params.SystemPrompt != "" {
		messages = append(messages, openAIChatMessage{Role: "system", Content: plan.Params.SystemPrompt})
	}
	messages = append(messages, openAIChatMessage{Role: "user", Content: prompt})

	reqBody := openAIChatRequest{
		Model:       plan.Target.Model,
		Messages:    messages,
		MaxTokens:   plan.Params.MaxTokens,
		Temperature: plan.Params.Temperature,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "openai: marshal request: "+err.Error(), o.Name())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "openai: build request: "+err.Error(), o.Name())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

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

	var parsed openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "openai: decode response: "+err.Error(), o.Name())
	}
	if len(parsed.Choices) == 0 {
		return Result{}, errs.NewWithProvider(errs.KindProviderInternal, "openai: empty choices", o.Name())
	}

	output := parsed.Choices[0].Message.Content
	promptTokens, completionTokens, estimated := parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, false
	if promptTokens == 0 && completionTokens == 0 {
		promptTokens = EstimateTokens(o.Name(), prompt)
		completionTokens = EstimateTokens(o.Name(), output)
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

// classifyTransportError maps a net/http transport-level failure (timeouts,
// DNS, connection refused) onto the taxonomy (§4.5).
func classifyTransportError(provider string, err error) error {
	if isTimeout(err) {
		return errs.NewWithProvider(errs.KindProviderTimeout, provider+": "+err.Error(), provider)
	}
	return errs.NewWithProvider(errs.KindProviderInternal, provider+": "+err.Error(), provider)
}

type timeoutError interface {
	Timeout() bool
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}

// classifyHTTPStatus maps an upstream HTTP status code onto the taxonomy.
func classifyHTTPStatus(provider string, status int, body io.Reader) error {
	detail, _ := io.ReadAll(io.LimitReader(body, 512))
	msg := fmt.Sprintf("%s: upstream returned status %d: %s", provider, status, string(detail))

	switch {
	case status == http.StatusTooManyRequests:
		return errs.NewWithProvider(errs.KindProviderRateLimit, msg, provider)
	case status >= 400 && status < 500:
		return errs.NewWithProvider(errs.KindProviderValidation, msg, provider)
	default:
		return errs.NewWithProvider(errs.KindProviderInternal, msg, provider)
	}
}
