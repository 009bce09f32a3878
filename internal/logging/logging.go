// Package logging wires the daemon's structured logger, the Go
// translation of the source's leveled stdout logging (spec.md §9
// "AMBIENT STACK").
//
// Grounded on cuemby-warren's pkg/embedded usage of zerolog: a
// Component-tagged, timestamped logger built once at startup and
// threaded through by value.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to w (os.Stdout in production,
// a buffer in tests) at the given level, tagged with component.
func New(w io.Writer, level string, component string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().
		Timestamp().
		Str("component", component).
		Logger()
}

// NewConsole builds a human-readable logger writing to os.Stdout.
// cmd/redis-server uses it whether or not --daemonize is set.
func NewConsole(level string, component string) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stdout}, level, component)
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warning", "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "notice", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
