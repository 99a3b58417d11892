// Package logging provides structured logging for treesync using slog.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Level aliases for convenience.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var (
	defaultLogger *slog.Logger
	defaultOnce   sync.Once
)

// Options configures the logger behavior.
type Options struct {
	// Level sets the minimum log level. Defaults to LevelInfo.
	Level slog.Level
	// Output sets the console destination. Defaults to os.Stderr.
	Output io.Writer
	// JSON enables JSON output format. Defaults to false (text format).
	JSON bool
	// AddSource includes source file and line in log output.
	AddSource bool
	// NoColor disables ANSI colors on the console even on a terminal.
	NoColor bool
	// File receives a second copy of every record as plain text, typically
	// a rotating log file from OpenFile.
	File io.Writer
	// FileLevel is the minimum level written to File. Defaults to Level.
	FileLevel *slog.Level
}

// DefaultOptions returns options suitable for CLI usage.
func DefaultOptions() Options {
	return Options{
		Level:     LevelInfo,
		Output:    os.Stderr,
		JSON:      false,
		AddSource: false,
	}
}

// New creates a new logger with the given options. Text output on the
// console is rendered by tint and colored only when Output is a terminal.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: opts.AddSource,
		})
	} else {
		handler = tint.NewHandler(opts.Output, &tint.Options{
			Level:      opts.Level,
			AddSource:  opts.AddSource,
			TimeFormat: time.TimeOnly,
			NoColor:    opts.NoColor || !IsTerminal(opts.Output),
		})
	}

	if opts.File != nil {
		level := opts.Level
		if opts.FileLevel != nil {
			level = *opts.FileLevel
		}
		fileHandler := slog.NewTextHandler(opts.File, &slog.HandlerOptions{
			Level:     level,
			AddSource: opts.AddSource,
		})
		handler = NewMultiHandler(handler, fileHandler)
	}

	return slog.New(handler)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Default returns the default logger, creating it if necessary.
// The default logger writes text output to stderr at Info level.
func Default() *slog.Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(DefaultOptions())
	})
	return defaultLogger
}

// SetDefault sets the default logger and also sets it as slog's default.
// This also ensures the sync.Once is triggered so Default() won't override the logger.
func SetDefault(logger *slog.Logger) {
	// Trigger the once to prevent Default() from overwriting our logger
	defaultOnce.Do(func() {})
	defaultLogger = logger
	slog.SetDefault(logger)
}

// WithContext returns the logger stored in ctx, or the default logger.
func WithContext(ctx context.Context) *slog.Logger {
	if l := FromContext(ctx); l != nil {
		return l
	}
	return Default()
}

// Debug logs at debug level using the default logger.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs at info level using the default logger.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs at warn level using the default logger.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Error logs at error level using the default logger.
func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}

// Timer logs the duration of an operation at debug level when the returned
// function is called.
//
//	defer logging.Timer("plan")()
func Timer(operation string) func() {
	start := time.Now()
	return func() {
		Default().Debug("operation finished",
			Operation(operation),
			slog.Duration(KeyDuration, time.Since(start)),
		)
	}
}

// Context key for logger storage.
type loggerKey struct{}

// NewContext returns a context with the logger attached.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the logger from context, or nil if not present.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return nil
}

// Common attribute keys for consistent logging across the codebase.
const (
	// KeyRun identifies one synchronization run.
	KeyRun = "run"
	// KeyChild names the child pass in child-only mode.
	KeyChild = "child"
	// KeyPath identifies a file path.
	KeyPath = "path"
	// KeyAction identifies the planned action kind.
	KeyAction = "action"
	// KeyOperation identifies the operation being performed.
	KeyOperation = "operation"
	// KeyReason explains a skip.
	KeyReason = "reason"
	// KeyCount provides a count of items.
	KeyCount = "count"
	// KeyBytes records a byte count.
	KeyBytes = "bytes"
	// KeyAttempt is the 1-based attempt number of a retried action.
	KeyAttempt = "attempt"
	// KeyError attaches an error value.
	KeyError = "error"
	// KeyDuration records operation duration.
	KeyDuration = "duration"
)

// Run returns a slog attribute for the run identifier.
func Run(id string) slog.Attr {
	return slog.String(KeyRun, id)
}

// Child returns a slog attribute for the child pass name.
func Child(name string) slog.Attr {
	return slog.String(KeyChild, name)
}

// Path returns a slog attribute for file path logging.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Action returns a slog attribute for the action kind.
func Action(kind string) slog.Attr {
	return slog.String(KeyAction, kind)
}

// Operation returns a slog attribute for operation logging.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Reason returns a slog attribute for skip reasons.
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}

// Err returns a slog attribute for error logging.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}

// Count returns a slog attribute for item counts.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Bytes returns a slog attribute for byte counts.
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// Attempt returns a slog attribute for the attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
