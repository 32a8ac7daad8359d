// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
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

// NewHandler builds a text or json handler writing to w.
func NewHandler(w io.Writer, logLevel, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(logLevel)}

	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

// Setup installs the default logger on stderr and returns it.
func Setup(logLevel, format string) *slog.Logger {
	logger := slog.New(NewHandler(os.Stderr, logLevel, format))
	slog.SetDefault(logger)

	return logger
}

// Attribute keys. Processes tag their logger with ServiceKey; components
// derive their own logger from it with ModuleKey.
const (
	ServiceKey = "service"
	ModuleKey  = "module"
)

// WithService returns the default logger tagged with the process name.
func WithService(service string) *slog.Logger {
	return slog.Default().With(ServiceKey, service)
}
