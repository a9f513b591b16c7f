package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/agentrouter/lattice-gateway/errs"
	"github.com/agentrouter/lattice-gateway/types"
)

// handleComplete handles POST /v1/complete: decode the request, run it
// through the routing pipeline, respond with the result or its error
// envelope. This is the gateway's single product endpoint — the
// teacher's proxy handler fans out to chat/embeddings/streaming/
// dry-run; this gateway has exactly one completion shape and no
// streaming (§ Non-goals).
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req types.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, string(errs.KindRequestValidation), "invalid request body: "+err.Error())
		return
	}

	resp, err := s.pipe.Run(r.Context(), req)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleMetricsSnapshot handles GET /v1/metrics: the spec's JSON
// counters snapshot (additive to the Prometheus text export at /metrics).
func (s *Server) handleMetricsSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.Snapshot(r.Context())
	if err != nil {
		writeErrorEnvelope(w, http.StatusInternalServerError, string(errs.KindInternal), "failed to read metrics: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleProviders handles GET /v1/providers: the set of registered
// provider adapters, additive introspection not in the distilled spec.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": s.adapters.List()})
}

// handleBands handles GET /v1/bands: the configured band catalog,
// additive introspection not in the distilled spec.
func (s *Server) handleBands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"bands": s.bands.List()})
}

// handleHealth handles GET /v1/health: a liveness probe reporting only
// that the process is up and which environment it believes it's in.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "environment": s.cfg.Env})
}

// handleReady handles GET /v1/ready: a readiness probe. 200 requires the
// shared store to answer a ping (if one is configured) and, in prod or
// cloud, at least one provider API key to be present — a gateway with no
// providers configured can accept traffic but can never serve it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	details := map[string]interface{}{}
	ready := true

	cacheOK := s.cache == nil || s.cache.Ping(r.Context())
	details["cache"] = cacheOK
	if !cacheOK {
		ready = false
	}

	if s.cfg.Env == "prod" || s.cfg.Env == "cloud" {
		hasProviderKey := s.cfg.OpenAIAPIKey != "" || s.cfg.AnthropicAPIKey != "" || s.cfg.GeminiAPIKey != ""
		details["provider_key_present"] = hasProviderKey
		if !hasProviderKey {
			ready = false
		}
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "details": details})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "details": details})
}

// writePipelineError renders a pipeline error as its §6 envelope,
// falling back to internal_error for anything not already an *errs.Error.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	ae, ok := errs.As(err)
	if !ok {
		ae = errs.New(errs.KindInternal, err.Error())
	}
	s.log.Error().Str("kind", string(ae.Kind)).Str("provider", ae.Provider).Msg(ae.Message)
	writeJSON(w, ae.Kind.StatusCode(), ae.ToEnvelope())
}

func writeErrorEnvelope(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errs.Envelope{Error: errs.EnvelopeBody{Type: errs.Kind(kind), Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func itoa(n int) string { return strconv.Itoa(n) }
