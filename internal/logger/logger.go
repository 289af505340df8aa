// Package logger builds the slog logger used across readalong: a coloured
// tint handler on stderr, optionally teed into a rotating log file.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

type options struct {
	level   slog.Level
	output  io.Writer
	logFile string
	noColor bool
}

// Option configures New
type Option func(*options)

// WithLevel sets the minimum level
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithOutput replaces stderr as the console destination
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithLogFile also writes plain-text records to a rotating file at path
func WithLogFile(path string) Option {
	return func(o *options) { o.logFile = path }
}

// WithNoColor disables ANSI colours on the console
func WithNoColor(noColor bool) Option {
	return func(o *options) { o.noColor = noColor }
}

// New creates a logger
func New(opts ...Option) *slog.Logger {
	o := &options{level: slog.LevelInfo, output: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	console := tint.NewHandler(o.output, &tint.Options{
		Level:      o.level,
		TimeFormat: time.Kitchen,
		NoColor:    o.noColor,
	})

	if o.logFile == "" {
		return slog.New(console)
	}

	os.MkdirAll(filepath.Dir(o.logFile), 0755)
	file := slog.NewTextHandler(&lumberjack.Logger{
		Filename:   o.logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}, &slog.HandlerOptions{Level: o.level})

	return slog.New(fanout{console, file})
}

// ParseLevel maps debug, info, warn and error to slog levels
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
}

// Tee returns a logger that writes to l and also to w as plain text
func Tee(l *slog.Logger, w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(fanout{l.Handler(), slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})})
}

// fanout sends every record to all handlers
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
