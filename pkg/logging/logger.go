// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
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

// Component names used in the "component" field.
const (
	ComponentClient      = "catalog-client"
	ComponentCoordinator = "fetch-coordinator"
	ComponentBrowser     = "browser"
	ComponentCLI         = "catalog-browser"
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

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

var zerologLevels = map[LogLevel]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
}

// ParseLevel validates a level name from configuration. "warning" is
// accepted as an alias of warn.
func ParseLevel(s string) (LogLevel, error) {
	l := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if l == "warning" {
		l = LevelWarn
	}
	if _, ok := zerologLevels[l]; !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels map to info.
func parseLevel(level LogLevel) zerolog.Level {
	l, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return zerologLevels[l]
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, age)
//   - Dropped requests while a fetch is in flight
//   - Cancelled fetches whose result was discarded
//
// Info: Normal operation events
//   - Requests that succeeded after a retry
//   - CLI startup/shutdown, metrics listener
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts exhausted
//   - Failed fetches (previous records stay visible)
//   - Category cache errors (fallback to direct request)
//
// Error: Error conditions requiring attention
//   - Configuration errors
//   - Metrics listener failures
//
// Context Fields:
//   - component: catalog-client, fetch-coordinator, browser, catalog-browser
//   - endpoint: API path (/courses, /categories)
//   - key: query key of the request
//   - status: HTTP status code
//   - error_class: client, throttled, server, network, decode
//   - request_id: X-Request-ID sent with the request
//   - cache_hit: whether the page was served from memory
//   - duration: fetch duration
