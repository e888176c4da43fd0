// Package logging builds the process logger on top of log/slog. The
// default is human-readable text on stderr; daemons switch to JSON.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config configures the logger. A zero value logs Info+ as text to stderr.
type Config struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string

	// JSON switches to machine-parseable JSON output.
	JSON bool

	// Service is attached to every entry as the "service" attribute.
	Service string

	// Writer overrides the output destination; defaults to stderr.
	Writer io.Writer
}

// New builds a *slog.Logger from cfg.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	if cfg.Service != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
