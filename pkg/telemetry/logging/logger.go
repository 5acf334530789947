package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config describes how log output is produced.
type Config struct {
	// Level is the minimum level to emit, "debug" through "error".
	// Empty means info.
	Level string

	// Format selects "json" or "text" output. Empty means JSON.
	Format string

	// AddSource includes file and line in every record.
	AddSource bool

	// RedactSecrets masks secret-looking attribute values before they
	// reach the writer.
	RedactSecrets bool

	// Writer receives the output. Nil means os.Stdout.
	Writer io.Writer
}

// Logger is a configured slog logger plus the redactor attached to it.
// The zero value is not usable; build one with New.
type Logger struct {
	slog     *slog.Logger
	redactor *Redactor
}

// New builds a Logger from cfg. The level and format strings are
// validated here so a typo in the config file fails startup instead of
// silently logging at the wrong level.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	newHandler, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	l := &Logger{}
	if cfg.RedactSecrets {
		l.redactor = NewRedactor()
		opts.ReplaceAttr = l.redactor.ReplaceAttr
	}
	l.slog = slog.New(newHandler(writer, &opts))
	return l, nil
}

// Install makes this logger the process-wide slog default, which is where
// every component logger derives from.
func (l *Logger) Install() {
	slog.SetDefault(l.slog)
}

// Slog returns the underlying slog logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// With returns a logger carrying additional fields on every record.
func (l *Logger) With(args ...any) *Logger {
	child := *l
	child.slog = l.slog.With(args...)
	return &child
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// parseLevel maps a config string to a slog level. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level: %s", s)
}

// parseFormat maps a config string to the handler constructor for that
// output format. Empty means JSON.
func parseFormat(s string) (func(io.Writer, *slog.HandlerOptions) slog.Handler, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return func(w io.Writer, o *slog.HandlerOptions) slog.Handler {
			return slog.NewJSONHandler(w, o)
		}, nil
	case "text":
		return func(w io.Writer, o *slog.HandlerOptions) slog.Handler {
			return slog.NewTextHandler(w, o)
		}, nil
	}
	return nil, fmt.Errorf("unknown log format: %s", s)
}
