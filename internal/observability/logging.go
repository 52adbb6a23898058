// Package observability provides logging sinks, metrics, and tracing.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the process log sink.
type LogOptions struct {
	Level      string
	JSON       bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
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

// LogWriter returns stdout, teed into a rotating file when File is set.
// The returned closer flushes and closes the rotating file.
func LogWriter(opts LogOptions) (io.Writer, io.Closer) {
	if opts.File == "" {
		return os.Stdout, nopCloser{}
	}
	rotating := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    nz(opts.MaxSizeMB, 100),
		MaxBackups: nz(opts.MaxBackups, 3),
		MaxAge:     nz(opts.MaxAgeDays, 7),
		Compress:   opts.Compress,
	}
	return io.MultiWriter(os.Stdout, rotating), rotating
}

// NewHandler builds the base slog handler for opts.
func NewHandler(w io.Writer, opts LogOptions) slog.Handler {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if opts.JSON {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func nz(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
