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
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopLoggerNeverPanics(t *testing.T) {
	var l Logger = nopLogger{}
	require.NotPanics(t, func() {
		l.Trace("t")
		l.Debug("d")
		l.Warn("w", "k", "v")
		l.Error("e", "k", "v")
	})
}

func TestSlogLoggerWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: levelTrace})
	l := NewLogger(slog.New(h))

	l.Warn("socket closed", "reason", "eof")
	require.Contains(t, buf.String(), "socket closed")
	require.Contains(t, buf.String(), "reason=eof")
}

func TestNewLoggerNilUsesDefault(t *testing.T) {
	require.NotPanics(t, func() {
		NewLogger(nil).Debug("hi")
	})
}
