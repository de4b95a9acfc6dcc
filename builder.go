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

import "context"

// Builder fluently configures the providers of a composed connection and
// drives their initialization protocol. The zero value is not usable;
// construct one with NewBuilder.
type Builder struct {
	conn        ConnProvider
	encryption  EncryptionProvider
	compression CompressionProvider
	ping        PingProvider
}

// NewBuilder returns a Builder with identity defaults for every optional
// provider; only SetConn is required before Run.
func NewBuilder() *Builder {
	return &Builder{
		encryption:  NilEncryption{},
		compression: NilCompression{},
		ping:        NilPing{},
	}
}

// SetConn sets the required transport provider, almost always a *Conn.
func (b *Builder) SetConn(c ConnProvider) *Builder {
	b.conn = c
	return b
}

// SetEncryption overrides the default identity EncryptionProvider.
func (b *Builder) SetEncryption(e EncryptionProvider) *Builder {
	b.encryption = e
	return b
}

// SetCompression overrides the default identity CompressionProvider.
func (b *Builder) SetCompression(c CompressionProvider) *Builder {
	b.compression = c
	return b
}

// SetPing overrides the default no-op PingProvider.
func (b *Builder) SetPing(p PingProvider) *Builder {
	b.ping = p
	return b
}

// Run executes the five-step initialization protocol and returns the first
// application-facing KindConn:
//
//  1. Fail with ConnNotSet if SetConn was never called.
//  2. Build a ContextState from all three providers, mode = Handle.
//  3. Run encryption.Init against a Raw-mode clone of the Context, so the
//     handshake itself is not encrypted by the provider being initialized.
//  4. Run ping.Init against the Handle-mode Context.
//  5. Return a fresh Handle-mode KindConn for the application.
func (b *Builder) Run(ctx context.Context) (*KindConn, error) {
	if b.conn == nil {
		return nil, &BuildError{Code: ErrConnNotSet}
	}

	state := newContextState(b.conn, b.encryption, b.compression)
	handle := &Context{state: state, mode: ModeHandle}

	raw := handle.WithMode(ModeRaw)
	if err := b.encryption.Init(ctx, raw); err != nil {
		return nil, &BuildError{Code: ErrEncryptionInitFailed, Err: err}
	}

	if err := b.ping.Init(ctx, handle); err != nil {
		return nil, &BuildError{Code: ErrProviderInitFailed, Err: err}
	}

	return handle.GetKindConn()
}
