// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Dmitry Khromov

// Package logger provides a thin wrapper around zerolog.Logger with the
// convenience constructors used throughout syncline.
//
// The Logger type embeds zerolog.Logger so all standard zerolog methods
// (Debug, Info, Warn, Error, etc.) are available directly on *Logger.
// Components receive a *Logger by pointer at construction time and derive
// scoped loggers via GetChildLogger or FromContext.
package logger

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin wrapper around zerolog.Logger. Embedding zerolog.Logger
// exposes the full zerolog API while allowing helper methods without
// modifying the upstream type.
type Logger struct {
	zerolog.Logger
}

// NewLogger constructs a production-ready *Logger for the given role label
// (e.g. "engine", "queue", "monitor").
//
// The logger is configured with:
//   - a "role" field set to role, useful for filtering logs from different
//     engine components;
//   - a "ts" timestamp field added to every entry;
//   - a "func" caller field recording the fully-qualified function name.
//
// Output is written to os.Stdout in JSON format.
func NewLogger(role string) *Logger {
	return NewLoggerWithOutput(role, os.Stdout)
}

// NewLoggerWithOutput is NewLogger writing to w instead of stdout. Useful
// when the host application routes engine logs into its own log file.
func NewLoggerWithOutput(role string, w io.Writer) *Logger {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	logger := zerolog.New(w).With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()

	return &Logger{logger}
}

// Nop returns a *Logger that discards all log output. Intended for tests and
// for embedders that bring their own observability sink.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// GetChildLogger returns a new *Logger that inherits all fields of the
// receiver. The child logger can be enriched with additional context fields
// without affecting the parent logger.
func (l *Logger) GetChildLogger() *Logger {
	return &Logger{l.With().Logger()}
}

// Component returns a child logger tagged with the component name, so log
// lines from different engine parts can be told apart.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With().Str("component", name).Logger()}
}

// FromContext extracts the zerolog.Logger stored in ctx by zerolog's log.Ctx
// helper and returns it as a *Logger.
//
// If no logger has been attached to ctx, zerolog returns its global logger,
// so this function never returns nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
