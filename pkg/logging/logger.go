// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Quiet raises the level to warn regardless of Level.
	Quiet bool

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output receives debug and info records (default: os.Stdout).
	Output io.Writer

	// ErrOutput receives warn and above. When nil everything goes to Output.
	ErrOutput io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:     LevelInfo,
		Pretty:    false,
		Output:    os.Stdout,
		ErrOutput: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	if cfg.Quiet && level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	errOut := cfg.ErrOutput
	if errOut == nil {
		errOut = out
	}

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
		errOut = zerolog.ConsoleWriter{Out: errOut}
	}

	logger := zerolog.New(splitWriter{out: out, err: errOut}).With().Timestamp().Logger()

	log.Logger = logger

	return logger
}

// splitWriter sends warn and above to err, everything else to out.
type splitWriter struct {
	out io.Writer
	err io.Writer
}

func (w splitWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w splitWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level >= zerolog.WarnLevel && level < zerolog.NoLevel {
		return w.err.Write(p)
	}
	return w.out.Write(p)
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Listing pages and continuation links
//   - Individual analytics requests and retry decisions
//   - Cache hits and misses
//
// Info: Normal operation events
//   - Start and end of a listing walk or analytics collection
//   - Files written by exporters
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limited or server error responses (retry follows)
//   - Low rate limit budget
//   - Cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Analytics lookups that failed for good
//   - Listing failures (abort the command)
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package
//   - endpoint: API path
//   - space_key: Confluence space key
//   - content_id: page id of an analytics lookup
//   - kind: analytics kind (viewers, views)
//   - status: HTTP status code
//   - error_class: Error classification (client, server, rate_limit, network)
//   - attempt: retry attempt number
//   - backoff: wait before the next attempt
