// Package logging configures the zerolog logger shared by pipeline components.
//
// Components never reach for a package-level logger; the orchestrator builds
// one logger here and hands sub-loggers (with a component field) to each
// constructor.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Level      string
	Pretty     bool
	TimeFormat string
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Pretty:     true,
		TimeFormat: time.RFC3339,
	}
}

// New builds a logger from cfg. Unknown levels fall back to info rather
// than failing: logging must never prevent a pipeline run.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stderr

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: timeFormat,
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}
