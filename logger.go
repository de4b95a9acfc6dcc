// Copyright 2025 The muxconn Authors
// This file is part of muxconn.
//
// muxconn is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// muxconn is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

package muxconn

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-stack/stack"
)

// Logger is the diagnostic sink every subsystem in this package logs
// through. Its shape mirrors log/slog's level methods so a *slog.Logger
// fits it through the thin adapter NewLogger returns (slog has no Trace
// method of its own); callers embedding it in a richer logger only need
// to forward these four calls.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

// slogLogger adapts *slog.Logger to Logger. slog has no Trace level, so
// Trace logs at a level one step below Debug.
type slogLogger struct{ l *slog.Logger }

const levelTrace = slog.LevelDebug - 4

// NewLogger wraps a *slog.Logger for use throughout this package. Passing
// nil uses slog.Default().
func NewLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Trace(msg string, ctx ...any) {
	s.l.Log(context.Background(), levelTrace, msg, ctx...)
}
func (s *slogLogger) Debug(msg string, ctx ...any) { s.l.Debug(msg, ctx...) }
func (s *slogLogger) Warn(msg string, ctx ...any)  { s.l.Warn(msg, append(ctx, callerAttr(2))...) }
func (s *slogLogger) Error(msg string, ctx ...any) { s.l.Error(msg, append(ctx, callerAttr(2))...) }

// nopLogger discards everything; it is the default for subsystems
// constructed without an explicit logger.
type nopLogger struct{}

func (nopLogger) Trace(string, ...any) {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// callerAttr returns a slog.Attr pinpointing the caller skip frames above
// this function, for handlers that want file:line without paying for a full
// stack capture on every record.
func callerAttr(skip int) slog.Attr {
	c := stack.Caller(skip)
	return slog.String("caller", c.String())
}

// NewTextLogger builds a Logger writing human-readable lines to os.Stderr
// at the given minimum level, in the style of the teacher's terminal
// handler: timestamps, level, message, then key=value pairs.
func NewTextLogger(level slog.Level) Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return NewLogger(slog.New(h))
}
