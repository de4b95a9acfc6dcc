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
	"net"
)

// KindConn is the user-facing handle for one logical channel of a composed
// connection: a kind, a mode, and a shared reference to the ContextState
// that actually owns the transport and crypto/compression stack. It is
// cheap to copy by value or to Clone explicitly; the normal way to get a
// second channel is Context.GetKindConn, which mints a fresh, never-reused
// kind, not by cloning an existing KindConn.
type KindConn struct {
	kind  byte
	mode  Mode
	state *ContextState
}

// Kind reports the logical channel this handle is bound to.
func (k *KindConn) Kind() byte { return k.kind }

// Mode reports whether this handle's traffic traverses the
// compression/encryption stack.
func (k *KindConn) Mode() Mode { return k.mode }

// Read waits for the next message on this kind. A nil slice with a nil
// error means the connection closed with nothing pending.
func (k *KindConn) Read(ctx context.Context) ([]byte, error) {
	return k.state.read(ctx, k.kind, k.mode)
}

// Write sends p on this kind, applying or skipping the crypto/compression
// stack according to Mode. The returned error is nil, a *WriteError[[]byte]
// (Rejected or Closed, with p preserved), or a context error.
func (k *KindConn) Write(ctx context.Context, p []byte) error {
	return k.state.write(ctx, k.kind, p, k.mode)
}

// LocalAddr returns the underlying transport's local address.
func (k *KindConn) LocalAddr() net.Addr { return k.state.conn.LocalAddr() }

// RemoteAddr returns the underlying transport's remote address.
func (k *KindConn) RemoteAddr() net.Addr { return k.state.conn.RemoteAddr() }

// Readable blocks until the underlying transport reports it can no longer
// make progress, or ctx is done -- see ConnProvider.Readable.
func (k *KindConn) Readable(ctx context.Context) error {
	return k.state.conn.Readable(ctx)
}

// Close closes the underlying transport with the given reason code. Since
// the transport is shared, this affects every KindConn bound to the same
// ContextState, not just this one -- dropping a single KindConn never
// closes the connection on its own.
func (k *KindConn) Close(code CloseCode) error {
	return k.state.conn.Close(code)
}

// IsClosed reports whether the underlying transport has closed and, if so,
// the code it closed with.
func (k *KindConn) IsClosed() (CloseCode, bool) {
	return k.state.conn.IsClosed()
}

// Clone returns a second KindConn sharing this one's kind, mode, and state.
// This is the only supported way for two KindConns to share a kind; the
// normal path (Context.GetKindConn) always mints a fresh one.
func (k *KindConn) Clone() *KindConn {
	return &KindConn{kind: k.kind, mode: k.mode, state: k.state}
}
