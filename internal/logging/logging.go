// Package logging builds the daemon's slog logger. The level lives in a
// LevelVar so a config reload can change it without rebuilding handlers.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a config log_level to a slog level. Unknown values map to
// info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text logger writing to w at the given level, plus the
// LevelVar that controls it.
func New(w io.Writer, level string) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	lv.Set(ParseLevel(level))
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lv,
	}))
	return logger, lv
}
