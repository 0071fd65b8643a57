package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps debug, info, warn and error onto slog levels. Unknown
// input is treated as info.
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

// InitLogger installs a JSON slog logger on stdout as the process default.
func InitLogger(level string) *slog.Logger {
	return initLogger(os.Stdout, level)
}

func initLogger(w io.Writer, level string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: true,
	}))
	slog.SetDefault(logger)
	return logger
}
