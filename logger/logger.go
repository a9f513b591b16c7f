// Package logger builds the process-wide zerolog.Logger. Kept almost
// unchanged from the teacher's version; the level now comes from
// cfg.LogLevel (parsed, default info) instead of being inferred solely
// from cfg.Env, since the gateway's config package exposes LOG_LEVEL
// directly.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/agentrouter/lattice-gateway/config"
)

// New returns a configured zerolog.Logger.
func New(cfg *config.Config) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	if !cfg.IsDevelopment() {
		out.NoColor = true
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(out).With().Timestamp().Str("service", "lattice-gateway").Logger()
}
