package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger: JSON to stdout with source
// locations, tagged with the service name so the shuttle API and the
// event consumer are distinguishable in a shared log stream.
func NewLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(h).With("service", "steerclear")
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
