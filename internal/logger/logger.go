package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the logging interface used throughout the simulator.
type Logger interface {
	Debug(msg string, tags ...any)
	Info(msg string, tags ...any)
	Warn(msg string, tags ...any)
	Error(msg string, tags ...any)
	Fatal(msg string, tags ...any)

	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
	Fatalf(format string, v ...any)

	With(attrs ...any) Logger
}

var _ Logger = (*appLogger)(nil)

type appLogger struct {
	logger *slog.Logger
	debug  bool
}

type Config struct {
	debug  bool
	format string
	writer io.Writer
	quiet  bool
}

type Option func(*Config)

// WithDebug sets the level of the logger to debug.
func WithDebug() Option {
	return func(o *Config) {
		o.debug = true
	}
}

// WithFormat sets the format of the logger (text or json).
func WithFormat(format string) Option {
	return func(o *Config) {
		o.format = format
	}
}

// WithWriter adds a writer to log to in addition to stderr.
func WithWriter(w io.Writer) Option {
	return func(o *Config) {
		o.writer = w
	}
}

// WithQuiet suppresses output to stderr.
func WithQuiet() Option {
	return func(o *Config) {
		o.quiet = true
	}
}

var defaultLogger = NewLogger(WithFormat("text"))

func NewLogger(opts ...Option) Logger {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}

	var level slog.Level
	if cfg.debug {
		level = slog.LevelDebug
	} else {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handlers []slog.Handler
	if !cfg.quiet {
		handlers = append(handlers, newHandler(os.Stderr, cfg.format, handlerOpts))
	}
	if cfg.writer != nil {
		handlers = append(handlers, newGuardedHandler(newHandler(cfg.writer, cfg.format, handlerOpts)))
	}

	return &appLogger{
		logger: slog.New(slogmulti.Fanout(handlers...)),
		debug:  cfg.debug,
	}
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

var _ slog.Handler = (*guardedHandler)(nil)

// guardedHandler serializes writes so that two goroutines logging to the
// same file do not interleave log lines.
type guardedHandler struct {
	handler slog.Handler
	mu      sync.Mutex
}

func newGuardedHandler(handler slog.Handler) *guardedHandler {
	return &guardedHandler{handler: handler}
}

func (s *guardedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.handler.Enabled(ctx, level)
}

func (s *guardedHandler) Handle(ctx context.Context, record slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.Handle(ctx, record)
}

func (s *guardedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &guardedHandler{handler: s.handler.WithAttrs(attrs)}
}

func (s *guardedHandler) WithGroup(name string) slog.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &guardedHandler{handler: s.handler.WithGroup(name)}
}

func (a *appLogger) Debug(msg string, tags ...any) { a.log(slog.LevelDebug, msg, tags...) }
func (a *appLogger) Info(msg string, tags ...any)  { a.log(slog.LevelInfo, msg, tags...) }
func (a *appLogger) Warn(msg string, tags ...any)  { a.log(slog.LevelWarn, msg, tags...) }
func (a *appLogger) Error(msg string, tags ...any) { a.log(slog.LevelError, msg, tags...) }

func (a *appLogger) Fatal(msg string, tags ...any) {
	a.log(slog.LevelError, msg, tags...)
	os.Exit(1)
}

func (a *appLogger) Debugf(format string, v ...any) { a.log(slog.LevelDebug, fmt.Sprintf(format, v...)) }
func (a *appLogger) Infof(format string, v ...any)  { a.log(slog.LevelInfo, fmt.Sprintf(format, v...)) }
func (a *appLogger) Warnf(format string, v ...any)  { a.log(slog.LevelWarn, fmt.Sprintf(format, v...)) }
func (a *appLogger) Errorf(format string, v ...any) { a.log(slog.LevelError, fmt.Sprintf(format, v...)) }

func (a *appLogger) Fatalf(format string, v ...any) {
	a.log(slog.LevelError, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (a *appLogger) With(attrs ...any) Logger {
	return &appLogger{
		logger: a.logger.With(attrs...),
		debug:  a.debug,
	}
}

// log records with the caller's program counter so that AddSource points at
// the call site rather than this file.
func (a *appLogger) log(level slog.Level, msg string, tags ...any) {
	if !a.logger.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(tags...)
	_ = a.logger.Handler().Handle(context.Background(), record)
}
