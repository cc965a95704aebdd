package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a text slog logger tagged with the service name and version.
// Source locations are only recorded at debug level.
func New(w io.Writer, module, version, level string, debug bool) *slog.Logger {
	lev := ParseLevel(level)
	if debug {
		lev = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     lev,
		AddSource: lev <= slog.LevelDebug,
	})).With("module", module, "version", version)
}

// Setup installs the logger as the slog default and returns it.
func Setup(module, version, level string, debug bool) *slog.Logger {
	l := New(os.Stdout, module, version, level, debug)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a level name to a slog.Level, falling back to info.
func ParseLevel(level string) slog.Level {
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
