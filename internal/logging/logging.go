// Package logging builds the process logger: an slog handler exposed
// through the logr interface the rest of the broker logs with.
package logging

import (
	"io"
	"log/slog"

	"github.com/go-logr/logr"
)

// Level parses a level name. Unknown names fall back to info.
func Level(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler returns a JSON or text handler writing to w. Unknown formats
// fall back to JSON.
func Handler(w io.Writer, format, level string) slog.Handler {
	opts := &slog.HandlerOptions{Level: Level(level)}
	switch format {
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		return slog.NewJSONHandler(w, opts)
	}
}

// New returns a logr.Logger backed by Handler. logr verbosity V(n) maps to
// slog level -n, so V(1) messages need the debug level to show.
func New(w io.Writer, format, level string) logr.Logger {
	return logr.FromSlogHandler(Handler(w, format, level))
}
