package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is what signals-cli packages log through.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	// WithContext binds ctx to every record the returned logger emits.
	WithContext(ctx context.Context) Logger
	// Slog exposes the underlying *slog.Logger for libraries that take one.
	Slog() *slog.Logger
}

// Config mirrors the log section of the CLI config file.
type Config struct {
	// Level is debug, info, warn or error. Empty means warn.
	Level string
	// Format is text or json. Empty means text.
	Format string
	// Output defaults to os.Stderr; stdout carries command output.
	Output io.Writer
}

// DefaultConfig keeps the terminal quiet unless something goes wrong.
func DefaultConfig() Config {
	return Config{Level: "warn", Format: "text", Output: os.Stderr}
}

// level is shared by every logger New returns, so SetLevel also reaches
// loggers already handed to the store, transport and session.
var level = new(slog.LevelVar)

// New builds a logger from cfg and makes cfg.Level the shared level.
func New(cfg Config) (Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	h, err := newHandler(out, cfg.Format)
	if err != nil {
		return nil, err
	}

	level.Set(lvl)
	return &ctxLogger{l: slog.New(h), ctx: context.Background()}, nil
}

func newHandler(w io.Writer, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("logger: unknown format %q (valid: text, json)", format)
	}
}

// ParseLevel maps a config level name to a slog level. "warning" is
// accepted for warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logger: unknown level %q (valid: debug, info, warn, error)", s)
	}
}

// SetLevel changes the shared level. The REPL calls it when the config
// file changes.
func SetLevel(s string) error {
	lvl, err := ParseLevel(s)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

// CurrentLevel returns the shared level as a config level name.
func CurrentLevel() string {
	return strings.ToLower(level.Level().String())
}

type ctxLogger struct {
	l   *slog.Logger
	ctx context.Context
}

func (c *ctxLogger) Debug(msg string, args ...any) { c.l.DebugContext(c.ctx, msg, args...) }
func (c *ctxLogger) Info(msg string, args ...any)  { c.l.InfoContext(c.ctx, msg, args...) }
func (c *ctxLogger) Warn(msg string, args ...any)  { c.l.WarnContext(c.ctx, msg, args...) }
func (c *ctxLogger) Error(msg string, args ...any) { c.l.ErrorContext(c.ctx, msg, args...) }

func (c *ctxLogger) With(args ...any) Logger {
	return &ctxLogger{l: c.l.With(args...), ctx: c.ctx}
}

func (c *ctxLogger) WithContext(ctx context.Context) Logger {
	return &ctxLogger{l: c.l, ctx: ctx}
}

func (c *ctxLogger) Slog() *slog.Logger { return c.l }

var defaultLogger atomic.Pointer[ctxLogger]

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(l.(*ctxLogger))
}

// SetDefault replaces the logger returned by Default and FromContext.
// Runtime.Open installs the configured logger here.
func SetDefault(l Logger) {
	if c, ok := l.(*ctxLogger); ok {
		defaultLogger.Store(c)
	}
}

// Default returns the process-wide logger.
func Default() Logger {
	return defaultLogger.Load()
}

// Nop discards everything.
func Nop() Logger {
	return &ctxLogger{
		l:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx: context.Background(),
	}
}
