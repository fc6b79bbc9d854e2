// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides a thin, project-wide wrapper around log/slog.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Extra levels beyond the four slog defines, used the same way the teacher
// project uses them: Trace for very verbose per-record tracing, Fatal for
// errors that should terminate the process after being logged.
const (
	LevelTrace slog.Level = slog.LevelDebug - 4
	LevelFatal slog.Level = slog.LevelError + 4
)

// NewHandlerOpts control NewHandler.
type NewHandlerOpts struct {
	// Base selects the underlying slog.Handler: "console" (human-oriented
	// text with millisecond timestamps), "text" (slog's default text
	// format), or "json".
	Base  string
	Level slog.Level
}

// NewHandler returns a slog.Handler for the given base format.
func NewHandler(w io.Writer, opts *NewHandlerOpts) slog.Handler {
	hopts := &slog.HandlerOptions{
		Level: opts.Level,
	}

	switch opts.Base {
	case "json":
		return slog.NewJSONHandler(w, hopts)
	case "text":
		return slog.NewTextHandler(w, hopts)
	default:
		hopts.ReplaceAttr = replaceConsoleTime
		return slog.NewTextHandler(w, hopts)
	}
}

// replaceConsoleTime truncates the time attribute to millisecond precision,
// matching the console format used throughout the project's log lines.
func replaceConsoleTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z"))
	}

	return a
}

// SetupDefault installs a default slog.Logger built from opts, optionally
// tagging every record with a fixed uuid attribute (typically the process
// instance UUID); when uuid is empty no uuid attribute is added.
func SetupDefault(opts *NewHandlerOpts, uuid string) {
	h := NewHandler(os.Stderr, opts)

	l := slog.New(h)
	if uuid != "" {
		l = l.With(slog.String("uuid", uuid))
	}

	slog.SetDefault(l)
}

// WithName returns a logger that adds a "name" attribute to every record,
// the same way the teacher project names per-connection and per-component
// sub-loggers.
func WithName(l *slog.Logger, name string) *slog.Logger {
	return l.With(slog.String("name", name))
}

// Error returns a slog.Attr carrying err under the conventional "error" key.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// ParseLevel parses a case-insensitive level name, including the "trace" and
// "fatal" extensions NewHandlerOpts/LevelTrace/LevelFatal add on top of slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "fatal":
		return LevelFatal, nil
	default:
		var lvl slog.Level
		err := lvl.UnmarshalText([]byte(s))
		return lvl, err
	}
}

// Discard returns a logger that drops every record, for tests that do not
// care about log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogAttrs is a small convenience wrapper so call sites in this project read
// l.LogAttrs(ctx, level, msg, attrs...) without importing log/slog themselves
// solely for the slog.Attr variadic conversion.
func LogAttrs(ctx context.Context, l *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	l.LogAttrs(ctx, level, msg, attrs...)
}
