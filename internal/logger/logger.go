// Package logger builds the zerolog logger shared by every component.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // human readable console output
	Output io.Writer
}

// New builds the logger, sets the global level and replaces the zerolog
// global logger. An unknown level falls back to info.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "cvranker").
		Logger()
	log.Logger = l
	return l
}
