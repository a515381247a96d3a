// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/use-agent/ytsearch/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a logger from cfg writing to stdout and, when cfg.File is set,
// to a rotated log file. The returned closer releases the file and must be
// called on shutdown; it is a no-op when no file is configured.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	return newWithWriter(cfg, os.Stdout)
}

// Init is New followed by slog.SetDefault.
func Init(cfg config.LogConfig) io.Closer {
	logger, closer := New(cfg)
	slog.SetDefault(logger)
	return closer
}

func newWithWriter(cfg config.LogConfig, console io.Writer) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(console, opts)
	} else {
		handler = slog.NewJSONHandler(console, opts)
	}

	if cfg.File == "" {
		return slog.New(handler), nopCloser{}
	}

	// lumberjack handles rotation and concurrent writes; the file is always JSON.
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	fileHandler := slog.NewJSONHandler(file, opts)

	return slog.New(fanout{handler, fileHandler}), file
}

// ParseLevel maps a config string to a slog level; unknown values are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
