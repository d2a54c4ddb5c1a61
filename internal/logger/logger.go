package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/polkiloo/storefront/internal/config"
)

// New creates a JSON slog.Logger at the configured level. Records carry the
// process role so worker and gateway output can be told apart.
func New(cfg *config.Config) *slog.Logger {
	l := newWithWriter(os.Stdout, cfg.LogLevel)
	if cfg.Role != "" {
		l = l.With(slog.String("role", cfg.Role))
	}
	return l
}

func newWithWriter(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
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
