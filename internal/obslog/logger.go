package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the logger's level and output format.
type Config struct {
	// Level is one of "trace", "debug", "info", "warn", "error", "disabled".
	Level string
	// Pretty switches to a human-readable console writer instead of raw
	// JSON, for local runs of the debug binaries.
	Pretty bool
	// Component names the subsystem this logger speaks for, e.g.
	// "someip-server" or "sd".
	Component string
}

// DefaultConfig returns "info" level, JSON output, unlabeled.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// New builds a zerolog.Logger per cfg, writing to w.
func New(w io.Writer, cfg Config) zerolog.Logger {
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level := parseLevel(cfg.Level)
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if cfg.Component != "" {
		logger = logger.With().Str("component", cfg.Component).Logger()
	}
	return logger
}

// NewStderr is the common case: New(os.Stderr, cfg).
func NewStderr(cfg Config) zerolog.Logger {
	return New(os.Stderr, cfg)
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
