// Package httpapi wires the gateway's HTTP surface: the chi router, its
// middleware chain, and the handlers for the completion endpoint and
// the introspection/health/metrics endpoints.
//
// Grounded on the teacher's router/router.go for the middleware chain
// ordering (CORS → security headers → request ID → recoverer → request
// logger → body size limit → auth → rate limit → per-request timeout)
// and on handler/proxy.go for the decode→validate→dispatch→respond
// handler shape, both trimmed to this gateway's single completion
// endpoint plus the read-only introspection routes the teacher's
// provider/routing/policy/experiment/intelligence CRUD surfaces have no
// equivalent of here.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/adapter"
	"github.com/agentrouter/lattice-gateway/bands"
	"github.com/agentrouter/lattice-gateway/cache"
	"github.com/agentrouter/lattice-gateway/config"
	gwmw "github.com/agentrouter/lattice-gateway/middleware"
	"github.com/agentrouter/lattice-gateway/metrics"
	"github.com/agentrouter/lattice-gateway/pipeline"
	"github.com/agentrouter/lattice-gateway/ratelimit"
)

// Server bundles the dependencies every handler needs.
type Server struct {
	cfg      *config.Config
	log      zerolog.Logger
	pipe     *pipeline.Pipeline
	metrics  metrics.Aggregator
	bands    *bands.Registry
	adapters *adapter.Registry
	limiter  ratelimit.Limiter
	cache    *cache.Cache
}

// NewServer constructs the Server.
func NewServer(
	cfg *config.Config,
	log zerolog.Logger,
	pipe *pipeline.Pipeline,
	metricsAgg metrics.Aggregator,
	bandsReg *bands.Registry,
	adapters *adapter.Registry,
	limiter ratelimit.Limiter,
	respCache *cache.Cache,
) *Server {
	return &Server{
		cfg:      cfg,
		log:      log.With().Str("component", "httpapi").Logger(),
		pipe:     pipe,
		metrics:  metricsAgg,
		bands:    bandsReg,
		adapters: adapters,
		limiter:  limiter,
		cache:    respCache,
	}
}

// NewRouter returns the fully configured chi Router.
func (s *Server) NewRouter() http.Handler {
	r := chi.NewRouter()

	// --- Middleware chain (order matters) ---
	r.Use(gwmw.CORSMiddleware([]string{"*"}))
	r.Use(gwmw.SecurityHeadersMiddleware)
	r.Use(gwmw.RequestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.maxBodySize(s.cfg.MaxBodyBytes))

	// --- Health / metrics (no auth) ---
	r.Get("/v1/health", s.handleHealth)
	r.Get("/v1/ready", s.handleReady)
	r.Get("/metrics", s.metrics.Handler())

	// --- API routes (auth + rate limit required) ---
	authMW := gwmw.NewAuthMiddleware(s.cfg.APIKeyHeader)
	timeoutMW := gwmw.NewTimeoutMiddleware(s.log, s.cfg.DefaultTimeout)

	r.Route("/v1", func(r chi.Router) {
		r.Use(gwmw.StripProviderHeaders)
		r.Use(authMW.Handler)
		r.Use(s.rateLimit)
		r.Use(timeoutMW.Handler)

		r.Post("/complete", s.handleComplete)
		r.Get("/metrics", s.handleMetricsSnapshot)
		r.Get("/providers", s.handleProviders)
		r.Get("/bands", s.handleBands)
	})

	return r
}

// maxBodySize rejects bodies larger than maxBytes before they reach the
// decoder; adapted from the teacher's mwMaxBodySize, minus its env-var
// override (the gateway's own config package already owns that knob).
func (s *Server) maxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = 1 * 1024 * 1024
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > 0 && r.ContentLength > maxBytes {
				writeErrorEnvelope(w, http.StatusRequestEntityTooLarge, "request_validation", "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(rw, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("req_id", r.Header.Get("X-Request-ID")).
			Int("status", rw.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// rateLimit enforces the configured per-day request budget, keyed by
// bearer token (falling back to remote address for unauthenticated
// probes that slipped past auth, which should not happen in practice).
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := gwmw.GetAPIKey(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}
		decision, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter error, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", itoa(int(decision.ResetAt.Unix())))
		if !decision.Allowed {
			writeErrorEnvelope(w, http.StatusTooManyRequests, "rate_limit", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
