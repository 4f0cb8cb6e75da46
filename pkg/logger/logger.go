// Package logger configures the structured (zerolog) logger shared by every
// component of the rebalancing engine.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how the root logger is constructed.
type Config struct {
	// Level is one of zerolog's level names: trace, debug, info, warn,
	// error, fatal, panic. Unknown values fall back to "info".
	Level string
	// Pretty enables zerolog's human-readable console writer. Disable in
	// production so log output stays newline-delimited JSON.
	Pretty bool
}

// New builds a zerolog.Logger writing to stderr with the given configuration.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writer = os.Stderr
	var output = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	if cfg.Pretty {
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
