// Package logging builds the zerolog loggers used by the command and the
// MCP server.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLevel is used when no level, or an unknown one, is configured.
const DefaultLevel = zerolog.InfoLevel

// ParseLevel converts a level name such as "debug" or "WARN" to a zerolog
// level. Empty or unknown names yield DefaultLevel and false.
func ParseLevel(name string) (zerolog.Level, bool) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return DefaultLevel, false
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return DefaultLevel, false
	}
	return lvl, true
}

// New returns a human-readable logger writing to w at the named level.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, _ := ParseLevel(level)
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(console).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// NewJSON returns a logger writing one JSON object per line to w.
func NewJSON(w io.Writer, level string) zerolog.Logger {
	lvl, _ := ParseLevel(level)
	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
