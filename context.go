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
	"errors"
	"net"
	"sync"
)

// Mode selects whether a KindConn's traffic traverses the
// compression+encryption stack.
type Mode uint8

const (
	// ModeHandle applies compression then encryption on send, and the
	// inverse on receive. This is the mode every application-facing
	// KindConn is minted with.
	ModeHandle Mode = iota
	// ModeRaw bypasses both stages. Used for handshake traffic that must
	// reach the peer before its own crypto provider has finished
	// initializing.
	ModeRaw
)

// reservedKind is never dispensed by ContextState.nextKind; it is available
// for a transport-level control channel if a ConnProvider wants one, but
// this package does not claim it for anything.
const reservedKind byte = 0

// ContextState is the shared core of one composed connection: the
// transport, the crypto/compression stack, and the monotonic kind counter
// that keeps every KindConn minted from it unique. It has no back-pointer
// to the KindConns it has handed out, so they can be collected independently
// of each other and of ContextState itself.
type ContextState struct {
	conn        ConnProvider
	encryption  EncryptionProvider
	compression CompressionProvider

	mu          sync.Mutex
	kindCounter int // next kind to dispense; overflows past 255
}

func newContextState(conn ConnProvider, enc EncryptionProvider, comp CompressionProvider) *ContextState {
	return &ContextState{conn: conn, encryption: enc, compression: comp, kindCounter: 1}
}

// nextKind hands out the next kind value and advances the counter under a
// single write lock, the only mutable field ContextState has.
func (cs *ContextState) nextKind() (byte, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.kindCounter > 255 {
		return 0, ErrKindOverflow
	}
	k := byte(cs.kindCounter)
	cs.kindCounter++
	return k, nil
}

// read fetches the next Frame of kind from the transport and, for
// ModeHandle, reverses the send-side transform: decrypt, then decompress.
// This is the mirror of write's compress-then-encrypt order below, and the
// ordering both must agree on to satisfy the round-trip law.
func (cs *ContextState) read(ctx context.Context, kind byte, mode Mode) ([]byte, error) {
	frame, err := cs.conn.Read(ctx, kind)
	if err != nil || frame == nil {
		return nil, err
	}
	body := frame.Body()
	if mode == ModeRaw {
		return body, nil
	}
	decrypted, err := cs.encryption.Decrypt(body)
	if err != nil {
		return nil, err
	}
	return cs.compression.Decompress(decrypted)
}

// write transforms plain for ModeHandle (compress, then encrypt -- chosen
// so encryption never sees the redundancy patterns compression would
// otherwise expose), wraps the result in a Frame of kind, and hands it to
// the transport. A rejection or closure is reported against the caller's
// original plain slice, not the transformed wire body, by routing the
// transport's WriteError[*Frame] through MapWriteError.
func (cs *ContextState) write(ctx context.Context, kind byte, plain []byte, mode Mode) error {
	body := plain
	if mode == ModeHandle {
		compressed, err := cs.compression.Compress(plain)
		if err != nil {
			return err
		}
		encrypted, err := cs.encryption.Encrypt(compressed)
		if err != nil {
			return err
		}
		body = encrypted
	}

	frame, err := NewFrame(cs.headerLen(), kind, body)
	if err != nil {
		return err
	}
	if werr := cs.conn.Write(ctx, frame); werr != nil {
		var fe *WriteError[*Frame]
		if errors.As(werr, &fe) {
			return MapWriteError(fe, func(*Frame) []byte { return plain })
		}
		return werr
	}
	return nil
}

func (cs *ContextState) headerLen() int {
	if hl, ok := cs.conn.(interface{ HeaderLen() int }); ok {
		return hl.HeaderLen()
	}
	return DefaultHeaderLen
}

// Context is the handle providers receive at init time: the shared
// ContextState plus the mode new KindConns minted from it will carry.
// Builder constructs the first Context with ModeHandle, then derives a
// ModeRaw clone for EncryptionProvider.Init so handshake traffic is not
// encrypted by the provider it is still bootstrapping.
type Context struct {
	state *ContextState
	mode  Mode
}

// GetKindConn mints a fresh KindConn bound to this Context's mode, with the
// next never-before-used kind. It is how providers obtain their own private
// channel: the default ping implementation calls this once at Init.
func (c *Context) GetKindConn() (*KindConn, error) {
	kind, err := c.state.nextKind()
	if err != nil {
		return nil, err
	}
	return &KindConn{kind: kind, mode: c.mode, state: c.state}, nil
}

// WithMode returns a Context sharing the same state but a different mode,
// used internally by Builder to derive the Raw view handed to
// EncryptionProvider.Init.
func (c *Context) WithMode(m Mode) *Context {
	return &Context{state: c.state, mode: m}
}

// Mode reports the mode new KindConns from this Context will carry.
func (c *Context) Mode() Mode { return c.mode }

// LocalAddr returns the underlying transport's local address.
func (c *Context) LocalAddr() net.Addr { return c.state.conn.LocalAddr() }

// RemoteAddr returns the underlying transport's remote address.
func (c *Context) RemoteAddr() net.Addr { return c.state.conn.RemoteAddr() }

// Close closes the underlying transport with the given reason code.
func (c *Context) Close(code CloseCode) error { return c.state.conn.Close(code) }
