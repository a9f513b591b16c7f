// Package config loads gateway configuration from the environment (and an
// optional .env file), the way the teacher's config package does, extended
// with the routing-specific settings this gateway needs: provider API
// keys, the bands/pricing catalog paths, cache and rate-limit tuning, and
// the optional cloud forwarder endpoint.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/agentrouter/lattice-gateway/errs"
)

// Config holds all gateway configuration values.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Redis — backs the cache, rate limiter, and metrics aggregator.
	RedisURL string

	// Authentication
	APIKeyHeader string

	// Rate limiting
	RateLimitEnabled    bool
	RateLimitPerDay     int
	RateLimitWindowSecs int

	// Timeouts
	DefaultTimeout   time.Duration
	ProviderTimeouts map[string]time.Duration

	// Body limits
	MaxBodyBytes int64

	// Provider credentials
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaBaseURL   string

	// Routing catalogs
	BandsFile   string
	PricingFile string

	// Cache
	CacheEnabled    bool
	CacheTTLSeconds int

	// Cloud forwarder
	CloudForwardEnabled bool
	CloudForwardURL     string
	CloudForwardAPIKey  string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and optional .env
// file, then validates it. A returned error is always an *errs.Error of
// kind configuration.
func Load() (*Config, error) {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("GATEWAY_GRACEFUL_TIMEOUT_SEC", 15)
	defaultTimeoutSec := getEnvInt("GATEWAY_DEFAULT_TIMEOUT_SEC", 60)

	cfg := &Config{
		Addr:            getEnv("GATEWAY_ADDR", ":8080"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,
		RedisURL:        getEnv("SHARED_STORE_URL", "redis://redis:6379"),
		APIKeyHeader:    getEnv("API_KEY_HEADER", "Authorization"),

		RateLimitEnabled:    getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerDay:     getEnvInt("RATE_LIMIT_PER_DAY", 10000),
		RateLimitWindowSecs: getEnvInt("RATE_LIMIT_WINDOW_SECS", 86400),

		DefaultTimeout: time.Duration(defaultTimeoutSec) * time.Second,
		MaxBodyBytes:   int64(getEnvInt("GATEWAY_MAX_BODY_BYTES", 1*1024*1024)),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL:   getEnv("OLLAMA_URL", "http://localhost:11434"),

		BandsFile:   getEnv("BANDS_CONFIG_PATH", "config/bands.yaml"),
		PricingFile: getEnv("PRICING_FILE", "config/pricing.yaml"),

		CacheEnabled:    !getEnvBool("CACHE_DISABLED", false),
		CacheTTLSeconds: getEnvInt("CACHE_TTL_SECONDS", 60),

		CloudForwardEnabled: getEnv("CLOUD_INGEST_URL", "") != "",
		CloudForwardURL:     getEnv("CLOUD_INGEST_URL", ""),
		CloudForwardAPIKey:  getEnv("CLOUD_INGEST_KEY", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		ProviderTimeouts: map[string]time.Duration{
			"openai":    time.Duration(getEnvInt("PROVIDER_TIMEOUT_OPENAI_SEC", 60)) * time.Second,
			"anthropic": time.Duration(getEnvInt("PROVIDER_TIMEOUT_ANTHROPIC_SEC", 60)) * time.Second,
			"google":    time.Duration(getEnvInt("PROVIDER_TIMEOUT_GOOGLE_SEC", 60)) * time.Second,
			"ollama":    time.Duration(getEnvInt("PROVIDER_TIMEOUT_OLLAMA_SEC", 120)) * time.Second,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces §4.11: at least one provider key configured when ENV
// is prod or cloud, catalog paths present, and non-negative tuning numbers.
func (c *Config) validate() error {
	if c.Env == "prod" || c.Env == "cloud" {
		if c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" && c.GeminiAPIKey == "" {
			return errs.New(errs.KindConfiguration,
				"at least one of OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY must be set when ENV is prod or cloud")
		}
	}
	if c.BandsFile == "" {
		return errs.New(errs.KindConfiguration, "BANDS_CONFIG_PATH must not be empty")
	}
	if c.PricingFile == "" {
		return errs.New(errs.KindConfiguration, "PRICING_FILE must not be empty")
	}
	if c.CacheTTLSeconds < 0 {
		return errs.New(errs.KindConfiguration, "CACHE_TTL_SECONDS must be >= 0")
	}
	if c.RateLimitPerDay < 0 {
		return errs.New(errs.KindConfiguration, "RATE_LIMIT_PER_DAY must be >= 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// ProviderTimeout returns the configured timeout for a given provider.
func (c *Config) ProviderTimeout(provider string) time.Duration {
	if t, ok := c.ProviderTimeouts[provider]; ok {
		return t
	}
	return c.DefaultTimeout
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
