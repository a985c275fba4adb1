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

// Levels accepted by Setup and by the log_level config key.
// Unknown values fall back to info.
const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to log to (default: os.Stderr). Stdout is
	// reserved for the MCP stdio transport; a config pointing this at
	// os.Stdout is remapped to stderr.
	Output io.Writer
}

// DefaultConfig returns the configuration Setup applies when the
// config file carries no logging section: info-level JSON on stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Setup configures the global zerolog logger and returns it.
// A nil output, or one pointed at os.Stdout, resolves to stderr: stdout
// carries the MCP stdio transport and must never receive log bytes.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil || out == os.Stdout {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
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

// Log level guidelines:
//
// Debug: detail useful when tracing a single tool call
//   - cache lookups (hit/miss, key, TTL)
//   - search query strings and pagination steps
//   - batch task scheduling
//
// Info: normal operation
//   - server start and shutdown
//   - client construction and teardown
//   - credential validation results
//
// Warn: degraded but still operating
//   - retry attempts and rate-limit waits
//   - records skipped over parse failures
//   - batch items dropped after errors
//
// Error: needs attention
//   - requests failed with retries exhausted
//   - config file or credential problems
//   - unreadable goal or journal files
//
// Context fields:
//   - endpoint: API path called
//   - status_code: HTTP response status
//   - duration: request duration
//   - error_class: client, server, rate_limit, network or decode
//   - cache_hit: whether the response came from cache
//   - tool: MCP tool name handling the call
