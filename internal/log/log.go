// Package log provides functions that are mainly wrappers for github.com/go-kit/log,
// but help provide consistent log behavior across the Lambda functions, the CLI, and the
// JSON API served by this project.
//
// Every configured logger emits level-based structured logs with the following fields:
//
//   - "msg": The main log message
//   - "ts": Timestamp formatted with time.RFC3339Nano
//   - "caller": The file and line number (as "file.go:N") that emitted the log
//   - "error": (ERROR-level logs only) The error that serves as the reason for the log
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type Logger log.Logger

// Format selects the encoding of emitted log lines.
type Format string

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
)

// New returns a Logger that writes lines encoded as format to w, dropping any log
// below lvl. lvl may be one of: DEBUG, INFO, WARN, ERROR and is not case-sensitive;
// unrecognized values fall back to INFO.
func New(w io.Writer, format Format, lvl string) Logger {
	var base log.Logger
	if format == FormatLogfmt {
		base = log.NewLogfmtLogger(log.NewSyncWriter(w))
	} else {
		base = log.NewJSONLogger(log.NewSyncWriter(w))
	}
	return log.With(
		level.NewFilter(base, level.Allow(level.ParseDefault(lvl, level.InfoValue()))),
		"ts", log.DefaultTimestamp,
		"caller", log.Caller(5),
	)
}

// ConfigureLogger points l at a JSON logger writing to stderr with the given level.
// Lambda entry points call it once during startup.
func ConfigureLogger(l *Logger, lvl string) {
	*l = New(os.Stderr, FormatJSON, lvl)
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return log.NewNopLogger()
}

// With is a wrapper for log.With() and exists to provide brevity/syntactic sugar
func With(logger Logger, keyvals ...interface{}) log.Logger {
	return log.With(logger, keyvals...)
}

// WithSuffix is a wrapper for log.WithSuffix(), which appends keyvals after any
// keyvals added by the logger's own context.
func WithSuffix(logger Logger, keyvals ...interface{}) log.Logger {
	return log.WithSuffix(logger, keyvals...)
}

// Debug logs a message and any keyvals with DEBUG level
func Debug(l Logger, msg interface{}, kv ...interface{}) {
	logWithMessage(level.Debug(l), msg, kv...)
}

// Info logs a message and any keyvals with INFO level
func Info(l Logger, msg interface{}, kv ...interface{}) {
	logWithMessage(level.Info(l), msg, kv...)
}

// Warn logs a message and any keyvals with WARN level
func Warn(l Logger, msg interface{}, kv ...interface{}) {
	logWithMessage(level.Warn(l), msg, kv...)
}

// Error logs a message, error and any keyvals with ERROR level
func Error(l Logger, msg interface{}, err error, kv ...interface{}) {
	logWithMessage(level.Error(log.With(l, "error", err)), msg, kv...)
}

// Errorf is like Error() but returns a new error that wraps err with msg, so that a
// failure can be logged and propagated in one statement:
//
//	if err := ds.Load(ctx, src); err != nil {
//		return log.Errorf(logger, "Error loading contracts sheet", err, "source", src)
//	}
//
// Note that kvs are included in the log output, but not in the returned error.
func Errorf(l Logger, msg interface{}, err error, kv ...interface{}) error {
	logWithMessage(level.Error(log.With(l, "error", err)), msg, kv...)
	return fmt.Errorf("%s: %w", msg, err)
}

func logWithMessage(l Logger, msg interface{}, kv ...interface{}) {
	log.With(l, "msg", msg).Log(kv...)
}
