// Package logging provides structured logging for the gdcard system using zerolog.
// It offers human-readable console output when attached to a terminal and
// structured JSON output otherwise, plus helpers that carry a logger and its
// fields (entry, slot, path, operation) through a context.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Int("slot", 7).Msg("Materialized entry")
//
//	ctx := logging.WithEntry(context.Background(), "Crazy Taxi")
//	logging.FromContext(ctx).Debug().Msg("Copying image files")
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger is used by packages that receive no logger through a context.
var defaultLogger zerolog.Logger

func init() {
	defaultLogger = NewLoggerFromConfig(envConfig())
}

// envConfig returns the default configuration adjusted by GDCARD_LOG_LEVEL,
// GDCARD_LOG_FORMAT and their unprefixed forms.
func envConfig() *Config {
	cfg := DefaultConfig()
	if level := lookupEnv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	} else if os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	if format := lookupEnv("LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	return cfg
}

func lookupEnv(key string) string {
	if v := os.Getenv("GDCARD_" + key); v != "" {
		return v
	}
	return os.Getenv(key)
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the default logger and zerolog's global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a logger writing JSON to w at the global level.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// Debug starts a new debug level log event.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts a new info level log event.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts a new error level log event.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// Err starts an error event when err is non-nil and an info event otherwise.
func Err(err error) *zerolog.Event {
	return defaultLogger.Err(err)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
