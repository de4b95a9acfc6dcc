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

// CloseCode is the byte reason code a KindConn or ConnProvider was closed
// with; see the CloseCode* constants.
type CloseCode byte

const (
	// CloseUser: closed explicitly by the application.
	CloseUser CloseCode = 1
	// ClosePingMissing: no PingProvider configured where one was required.
	ClosePingMissing CloseCode = 2
	// CloseEncryptionMissing: no EncryptionProvider configured where one was required.
	CloseEncryptionMissing CloseCode = 3
	// CloseCompressionMissing: no CompressionProvider configured where one was required.
	CloseCompressionMissing CloseCode = 4
	// ClosePingTimeout: the default ping implementation saw no liveness in time.
	ClosePingTimeout CloseCode = 5
	// CloseEncryptionError: an EncryptionProvider operation failed.
	CloseEncryptionError CloseCode = 6
	// CloseCompressionError: a CompressionProvider operation failed.
	CloseCompressionError CloseCode = 7
)

// ConnProvider abstracts the transport a Context rides on. *Conn is the
// implementation this package ships; it is an interface rather than a
// concrete struct field so that another frame transport can stand in.
type ConnProvider interface {
	Read(ctx context.Context, kind byte) (*Frame, error)
	Write(ctx context.Context, frame *Frame) error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Readable(ctx context.Context) error
	Close(code CloseCode) error
	IsClosed() (code CloseCode, closed bool)
}

// EncryptionProvider is a pluggable confidentiality/integrity stage. init
// receives a Context whose mode is forced to Raw so handshake traffic
// bypasses the not-yet-initialized crypto it is in the middle of
// establishing. Encrypt/Decrypt must be pure and must not block.
//
// This package defines the interface only; no concrete TLS/AEAD
// implementation ships here; see NilEncryption for the identity default.
type EncryptionProvider interface {
	Init(ctx context.Context, c *Context) error
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// CompressionProvider is a pluggable compression stage, with the same
// init/identity-default shape as EncryptionProvider.
type CompressionProvider interface {
	Init(ctx context.Context, c *Context) error
	Compress(plain []byte) ([]byte, error)
	Decompress(compressed []byte) ([]byte, error)
}

// PingProvider spawns its own liveness tasks against the KindConn it is
// handed at init; it has no data-path callbacks, so all of its work happens
// on goroutines it starts itself.
type PingProvider interface {
	Init(ctx context.Context, c *Context) error
}

// NilEncryption is the identity EncryptionProvider: Init is a no-op,
// Encrypt/Decrypt return their input unchanged. It is the Builder default.
type NilEncryption struct{}

func (NilEncryption) Init(context.Context, *Context) error { return nil }
func (NilEncryption) Encrypt(p []byte) ([]byte, error)     { return p, nil }
func (NilEncryption) Decrypt(p []byte) ([]byte, error)     { return p, nil }

// NilCompression is the identity CompressionProvider.
type NilCompression struct{}

func (NilCompression) Init(context.Context, *Context) error { return nil }
func (NilCompression) Compress(p []byte) ([]byte, error)    { return p, nil }
func (NilCompression) Decompress(p []byte) ([]byte, error)  { return p, nil }

// NilPing is a PingProvider that starts no tasks and never closes the
// connection for inactivity. It is the Builder default when no keep-alive
// is desired.
type NilPing struct{}

func (NilPing) Init(context.Context, *Context) error { return nil }
