// Package logging provides the structured zerolog logger used across the
// engine, store and API layers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin alias so callers don't import zerolog directly.
type Logger = zerolog.Logger

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // human-readable console writer instead of JSON
}

// New builds a zerolog.Logger per cfg, writing to w (os.Stdout in
// production, a test buffer in unit tests).
func New(cfg Config, w io.Writer) Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Default builds a sensible stdout logger, used by engine.New when the
// caller supplies no logger.
func Default() Logger {
	return New(Config{Level: "info", Pretty: true}, os.Stdout)
}
