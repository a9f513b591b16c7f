// Package pipeline implements the routing pipeline (C9) — the heart of
// the gateway: given a completion request, it resolves a band, orders
// candidate (provider, model) pairs, and works through them in order,
// checking the response cache before each upstream dispatch and
// treating recoverable provider errors as a signal to try the next
// candidate.
//
// Grounded on the teacher's handler/proxy.go decode→validate→dispatch→
// respond shape and routing/routing.go's sequential-candidate iteration
// (the teacher's rule-engine condition matching and FailoverState
// health/cooldown tracking are not used — this gateway's candidate
// order is deterministic per §REDESIGN FLAG rather than rule- or
// health-driven, so neither applies; see DESIGN.md).
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/agentrouter/lattice-gateway/adapter"
	"github.com/agentrouter/lattice-gateway/bands"
	"github.com/agentrouter/lattice-gateway/cache"
	"github.com/agentrouter/lattice-gateway/cloudforward"
	"github.com/agentrouter/lattice-gateway/errs"
	"github.com/agentrouter/lattice-gateway/metrics"
	"github.com/agentrouter/lattice-gateway/pricing"
	"github.com/agentrouter/lattice-gateway/scorer"
	"github.com/agentrouter/lattice-gateway/sensitivity"
	"github.com/agentrouter/lattice-gateway/trace"
	"github.com/agentrouter/lattice-gateway/types"
)

const (
	routeForcedModel   = "forced_model"
	routeRequestedBand = "requested_band"
	routeInferredBand  = "inferred_band"
)

// Pipeline is the routing pipeline's runtime: one instance per process,
// shared across all requests.
type Pipeline struct {
	bands    *bands.Registry
	pricing  *pricing.Catalog
	adapters *adapter.Registry
	cache    *cache.Cache
	metrics  metrics.Aggregator
	trace    *trace.Pipeline
	cloud    *cloudforward.Forwarder
	log      zerolog.Logger

	// sf collapses concurrent cache-miss dispatches that share an
	// identical cache key into a single upstream call (§4.9).
	sf singleflight.Group
}

// New constructs a Pipeline from its fully-wired collaborators.
func New(
	bandsReg *bands.Registry,
	pricingCat *pricing.Catalog,
	adapters *adapter.Registry,
	respCache *cache.Cache,
	metricsAgg metrics.Aggregator,
	tracePipeline *trace.Pipeline,
	cloud *cloudforward.Forwarder,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		bands:    bandsReg,
		pricing:  pricingCat,
		adapters: adapters,
		cache:    respCache,
		metrics:  metricsAgg,
		trace:    tracePipeline,
		cloud:    cloud,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one completion request end to end.
func (p *Pipeline) Run(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return types.CompletionResponse{}, errs.New(errs.KindProviderValidation, "prompt must not be empty")
	}

	promptTags := sensitivity.Tags(prompt)
	inferredBandInternal := scorer.InternalBand(prompt)
	inferredBand := scorer.Band(prompt)

	var requestedBand bands.Name
	var hasRequestedBand bool
	if req.Band != "" {
		requestedBand, hasRequestedBand = bands.Normalize(req.Band)
	}

	candidates, band, routeSource, err := p.resolveCandidates(req, requestedBand, hasRequestedBand, inferredBand)
	if err != nil {
		return types.CompletionResponse{}, err
	}
	reason := routingReason(routeSource, req.Model, string(band))

	var lastErr error
	for _, cand := range candidates {
		resp, hit, err := p.tryCandidate(ctx, req, prompt, cand, string(band), promptTags)
		if err != nil {
			lastErr = err
			if ae, ok := errs.As(err); ok && !ae.Kind.Recoverable() {
				p.emitTrace(req, types.CompletionResponse{}, string(band), inferredBandInternal, routeSource, "error", err.Error())
				return types.CompletionResponse{}, err
			}
			continue
		}

		resp.Routing = types.RoutingDecision{Reason: reason, Candidates: candidates, Chosen: cand}
		if !hit {
			p.cache.Set(ctx, cache.Key(prompt, cand.Provider, cand.Model, string(band)), resp)
			p.cloud.Enqueue(p.traceRecord(req, resp, string(band), inferredBandInternal, routeSource, "success", ""))
		}
		p.emitTrace(req, resp, string(band), inferredBandInternal, routeSource, "success", "")
		return resp, nil
	}

	if lastErr == nil {
		return types.CompletionResponse{}, errs.New(errs.KindProviderInternal, "no candidates available for this band")
	}
	provider := ""
	if ae, ok := errs.As(lastErr); ok {
		provider = ae.Provider
	}
	final := errs.NewWithProvider(errs.KindProviderInternal, "all candidates exhausted: "+lastErr.Error(), provider)
	p.emitTrace(req, types.CompletionResponse{}, string(band), inferredBandInternal, routeSource, "error", final.Error())
	return types.CompletionResponse{}, final
}

// resolveCandidates implements §4.9's branch between a forced model and
// band-based resolution.
func (p *Pipeline) resolveCandidates(
	req types.CompletionRequest,
	requestedBand bands.Name,
	hasRequestedBand bool,
	inferredBand bands.Name,
) ([]types.Candidate, bands.Name, string, error) {
	displayBand := inferredBand
	if hasRequestedBand {
		displayBand = requestedBand
	}

	if req.Model != "" {
		providerName := req.Provider
		if providerName == "" {
			found, ok := p.bands.FindProvider(req.Model)
			if !ok {
				return nil, "", "", errs.New(errs.KindProviderValidation, "unknown model: "+req.Model)
			}
			providerName = found
		}
		return []types.Candidate{{Provider: providerName, Model: req.Model}}, displayBand, routeForcedModel, nil
	}

	resolved := p.bands.Resolve(string(displayBand))
	routeSource := routeInferredBand
	if hasRequestedBand {
		routeSource = routeRequestedBand
	}
	return resolved.Models, resolved.Name, routeSource, nil
}

// routingReason formats the user-facing CompletionResponse.Routing.Reason
// string per §4.9 step 4. routeSource remains the internal enum used for
// TraceRecord.RouteSource; this is the human-readable rendering of it.
func routingReason(routeSource, forcedModel, band string) string {
	if routeSource == routeForcedModel {
		return fmt.Sprintf("model override='%s'", forcedModel)
	}
	source := "auto"
	if routeSource == routeRequestedBand {
		source = "user"
	}
	return fmt.Sprintf("band='%s' (%s)", band, source)
}

// tryCandidate attempts one (provider, model) pair: a cache lookup
// followed, on miss, by a plan+execute dispatch. hit reports whether
// the response came from cache (so the caller skips re-storing it).
func (p *Pipeline) tryCandidate(
	ctx context.Context,
	req types.CompletionRequest,
	prompt string,
	cand types.Candidate,
	band string,
	promptTags []string,
) (types.CompletionResponse, bool, error) {
	key := cache.Key(prompt, cand.Provider, cand.Model, band)

	if p.cache.Enabled() {
		if cached, ok := p.cache.Get(ctx, key); ok {
			cached.Tags = sensitivity.Union(promptTags, sensitivity.Tags(cached.Text))
			p.metrics.RecordCacheHit(ctx)
			p.metrics.RecordRequest(ctx, metrics.RequestRecord{
				Provider: cand.Provider, Model: cand.Model, Band: band,
				LatencyMs: cached.LatencyMs, Sensitive: len(cached.Tags) > 0, CountUsage: false,
			})
			return cached, true, nil
		}
		p.metrics.RecordCacheMiss(ctx)
	}

	adp, err := p.adapters.MustGet(cand.Provider)
	if err != nil {
		return types.CompletionResponse{}, false, err
	}

	plan, err := adp.Plan(adapter.Params{
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		SystemPrompt: "",
	}, cand.Model)
	if err != nil {
		return types.CompletionResponse{}, false, err
	}

	timeout := adp.DefaultTimeout()
	dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	raw, err, _ := p.sf.Do(key, func() (interface{}, error) {
		return adp.Execute(dispatchCtx, plan, prompt)
	})
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return types.CompletionResponse{}, false, err
	}
	result := raw.(adapter.Result)

	cost := p.pricing.Cost(cand.Provider, cand.Model, result.PromptTokens, result.CompletionTokens)
	tags := sensitivity.Union(promptTags, sensitivity.Tags(result.OutputText))

	resp := types.CompletionResponse{
		Text:      result.OutputText,
		Provider:  cand.Provider,
		Model:     cand.Model,
		Band:      band,
		LatencyMs: latency,
		Usage: types.Usage{
			InputTokens:  result.PromptTokens,
			OutputTokens: result.CompletionTokens,
			TotalTokens:  result.PromptTokens + result.CompletionTokens,
		},
		Cost:       cost,
		Tags:       tags,
		Provenance: result.Provenance,
	}

	p.metrics.RecordRequest(ctx, metrics.RequestRecord{
		Provider: cand.Provider, Model: cand.Model, Band: band,
		InputTokens: int64(result.PromptTokens), OutputTokens: int64(result.CompletionTokens),
		Cost: cost.TotalCost, LatencyMs: latency, Sensitive: len(tags) > 0, CountUsage: true,
	})

	return resp, false, nil
}

func (p *Pipeline) emitTrace(req types.CompletionRequest, resp types.CompletionResponse, band, inferredBandInternal, routeSource, status, errMsg string) {
	p.trace.Emit(p.traceRecord(req, resp, band, inferredBandInternal, routeSource, status, errMsg))
}

func (p *Pipeline) traceRecord(req types.CompletionRequest, resp types.CompletionResponse, band, inferredBandInternal, routeSource, status, errMsg string) types.TraceRecord {
	provenance, _ := json.Marshal(resp.Provenance)
	inferredBand, _ := bands.Normalize(inferredBandInternal)
	return types.TraceRecord{
		ID:                   uuid.New().String(),
		CreatedAt:            time.Now().UTC(),
		Provider:             resp.Provider,
		Model:                resp.Model,
		Input:                req.Prompt,
		Output:               resp.Text,
		LatencyMs:            resp.LatencyMs,
		PromptTokens:         resp.Usage.InputTokens,
		CompletionTokens:     resp.Usage.OutputTokens,
		Cost:                 resp.Cost.TotalCost,
		Band:                 band,
		RequestedBand:        req.Band,
		InferredBand:         string(inferredBand),
		InferredBandInternal: inferredBandInternal,
		RouteSource:          routeSource,
		Provenance:           string(provenance),
		Status:               status,
		ErrorMessage:         errMsg,
	}
}
