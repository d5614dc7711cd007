// Package logging configures the zerolog logger shared by the client
// packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

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

	// LevelWarn logs warning messages and above. Retry and unknown database
	// warnings stay visible at this level.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled silences all output.
	LevelDisabled LogLevel = "disabled"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(toZerolog(cfg.Level))
	zerolog.DurationFieldUnit = time.Millisecond

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "disabled", "off", "none":
		return LevelDisabled, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// toZerolog converts LogLevel to zerolog.Level; unknown names map to info.
func toZerolog(level LogLevel) zerolog.Level {
	parsed, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch parsed {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelDisabled:
		return zerolog.Disabled
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
//   - Request flow (endpoint, method, query summary, throttle delay)
//   - Parameter overrides replacing client defaults
//   - Per-chunk completion
//
// Info: Normal operation events
//   - Batch and page run start/completion
//   - Page progress every 50 pages
//   - Units that succeeded after retries
//
// Warn: Warning conditions that don't prevent operation
//   - Unknown database codes (warning=UnknownDatabaseWarning)
//   - Failed chunks/pages being retried
//   - Non-2xx responses
//
// Error: Error conditions requiring attention
//   - Transport failures
//   - Pagination contract violations
//   - Exhausted retry caps
//
// Context Fields:
//   - component: emitting package (eutils-client, batch, pagination, ratelimit, query)
//   - endpoint: E-utility name (esearch, esummary, ...)
//   - status_code: HTTP status code
//   - error_class: client, server or network
//   - unit, index: bulk unit kind (batch, page) and its position
//   - retry_in, reason: backoff delay and the failure being retried
