// Command gateway is the lattice-gateway entry point: it wires config,
// logging, Redis, the provider adapter registry, the bands/pricing
// catalogs, the cache/rate-limit/metrics backends, the trace pipeline,
// the cloud forwarder, the routing pipeline, and the HTTP server, then
// runs until an OS signal requests a graceful shutdown.
//
// Grounded on the teacher's root main.go: same config→logger→redis→
// registry→router→http.Server shape and the same signal-driven graceful
// shutdown, extended with the routing-specific subsystems (bands,
// pricing, cache, rate limiter, trace pipeline, cloud forwarder) this
// gateway has and the teacher's didn't, and trimmed of the health
// poller / model syncer / ClickHouse analytics sink background jobs —
// provider health polling and model sync are out of this gateway's
// scope (§ Non-goals), and trace storage here is the log sink plus an
// optional injected Collector rather than a dedicated ClickHouse client.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/adapter"
	"github.com/agentrouter/lattice-gateway/bands"
	"github.com/agentrouter/lattice-gateway/cache"
	"github.com/agentrouter/lattice-gateway/cloudforward"
	"github.com/agentrouter/lattice-gateway/config"
	"github.com/agentrouter/lattice-gateway/httpapi"
	"github.com/agentrouter/lattice-gateway/logger"
	"github.com/agentrouter/lattice-gateway/metrics"
	"github.com/agentrouter/lattice-gateway/pipeline"
	"github.com/agentrouter/lattice-gateway/pricing"
	"github.com/agentrouter/lattice-gateway/ratelimit"
	"github.com/agentrouter/lattice-gateway/redisclient"
	"github.com/agentrouter/lattice-gateway/trace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		println("configuration error:", err.Error())
		os.Exit(1)
	}
	log := logger.New(cfg)
	log.Info().Str("env", cfg.Env).Msg("lattice gateway starting")

	var redis *redisclient.Client
	rc, err := redisclient.New(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis init failed — continuing with cache disabled and in-process rate-limit/metrics")
	} else if pingErr := rc.Ping(context.Background()); pingErr != nil {
		log.Warn().Err(pingErr).Msg("redis ping failed — continuing with cache disabled and in-process rate-limit/metrics")
	} else {
		redis = rc
		log.Info().Msg("redis connected")
	}

	adapters := registerAdapters(cfg, log)

	bandsReg, err := bands.Load(cfg.BandsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.BandsFile).Msg("failed to load bands catalog")
	}
	pricingCat := pricing.LoadDefault()
	if err := pricingCat.Load(cfg.PricingFile); err != nil {
		log.Warn().Err(err).Str("file", cfg.PricingFile).Msg("failed to load pricing catalog, using built-in defaults only")
	}

	respCache := cache.New(redis, cfg.CacheTTLSeconds, cfg.CacheEnabled, log)
	metricsAgg := metrics.New(redis)
	limiter := ratelimit.New(redis, cfg.RateLimitPerDay, time.Duration(cfg.RateLimitWindowSecs)*time.Second)

	tracePipeline := trace.NewPipeline(context.Background(), trace.NewLogSink(log), log)
	cloudForwarder := cloudforward.New(cfg, log)

	pipe := pipeline.New(bandsReg, pricingCat, adapters, respCache, metricsAgg, tracePipeline, cloudForwarder, log)

	srv := httpapi.NewServer(cfg, log, pipe, metricsAgg, bandsReg, adapters, limiter, respCache)
	httpSrv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.NewRouter(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.DefaultTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()

	cloudForwarder.Shutdown(shutdownCtx)
	tracePipeline.Stop()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		log.Info().Msg("gateway stopped gracefully")
	}
	if redis != nil {
		_ = redis.Close()
	}
}

// registerAdapters builds the provider adapter registry, registering a
// live connector for every provider with credentials configured, plus
// the deterministic stub adapter used by the spec's S1 scenario and by
// local development when no provider keys are set.
func registerAdapters(cfg *config.Config, log zerolog.Logger) *adapter.Registry {
	reg := adapter.NewRegistry()
	reg.Register(adapter.NewStub())

	if cfg.OpenAIAPIKey != "" {
		reg.Register(adapter.NewOpenAI(cfg.OpenAIAPIKey, cfg.ProviderTimeout("openai")))
		log.Info().Msg("registered openai adapter")
	}
	if cfg.AnthropicAPIKey != "" {
		reg.Register(adapter.NewAnthropic(cfg.AnthropicAPIKey, cfg.ProviderTimeout("anthropic")))
		log.Info().Msg("registered anthropic adapter")
	}
	if cfg.GeminiAPIKey != "" {
		reg.Register(adapter.NewGemini(cfg.GeminiAPIKey, cfg.ProviderTimeout("google")))
		log.Info().Msg("registered google adapter")
	}
	if cfg.OllamaBaseURL != "" {
		reg.Register(adapter.NewOllama(cfg.OllamaBaseURL, cfg.ProviderTimeout("ollama")))
		log.Info().Str("url", cfg.OllamaBaseURL).Msg("registered ollama adapter")
	}

	log.Info().Int("providers", len(reg.List())).Msg("adapter registration complete")
	return reg
}
