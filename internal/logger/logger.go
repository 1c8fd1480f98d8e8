// Package logger builds the process-wide slog logger, optionally writing to a
// rotated file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	// debug, info, warn, error
	Level string
	// json or text
	Format string
	// Empty means stdout only. Otherwise logs go to stdout and the rotated file.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New creates a logger from cfg and installs it as the slog default.
func New(cfg Config) (*slog.Logger, error) {
	var output io.Writer = os.Stdout

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, err
		}
		output = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 10),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
		})
	}

	logger := slog.New(NewHandler(output, cfg))
	slog.SetDefault(logger)
	return logger, nil
}

// NewHandler returns the handler New would install, writing to w.
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
