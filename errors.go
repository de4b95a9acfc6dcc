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
	"errors"
	"fmt"
)

// ErrBodyTooLarge is returned by frame construction when the body does not
// fit the configured header width.
var ErrBodyTooLarge = errors.New("muxconn: frame body too large for header width")

// ErrTooLong is returned by the deframer when a parsed length field is not
// a valid frame length: zero (no room for the kind byte) or larger than the
// header width allows.
var ErrTooLong = errors.New("muxconn: frame length exceeds buffer capacity")

// ErrBufferTooSmall is returned by NewConcatBuf when the requested capacity
// cannot hold two maximal frames back to back.
var ErrBufferTooSmall = errors.New("muxconn: concat buffer capacity too small")

// ErrKindOverflow is returned by Context.GetKindConn once all 255 kinds
// have been dispensed.
var ErrKindOverflow = errors.New("muxconn: no kinds left to dispense")

// errConnClosed is returned by Conn.Readable once Conn.Close has been called.
var errConnClosed = errors.New("muxconn: connection closed")

// RejectedError is returned by Pool.Write (and anything built on top of it)
// when the paired reader explicitly refused the value. The value is
// preserved so the caller can retry or discard it.
type RejectedError[T any] struct {
	Value T
}

func (e *RejectedError[T]) Error() string {
	return fmt.Sprintf("muxconn: value rejected by reader: %v", e.Value)
}

// ClosedError is returned by Pool.Write when the pool was (or became)
// closed before a reader accepted the value. The value is preserved.
type ClosedError[T any] struct {
	Value T
}

func (e *ClosedError[T]) Error() string {
	return fmt.Sprintf("muxconn: pool closed: %v", e.Value)
}

// WriteError is the uniform shape every layer above Pool uses to report a
// failed write while keeping hold of the payload that failed to deliver.
//
// Layers translate WriteError from one payload type to another (e.g. Frame
// to []byte) with MapWriteError, which preserves the Rejected/Closed
// distinction. Do
// not reimplement this translation by hand: collapsing Closed into Rejected
// silently changes observable behavior for callers that branch on the
// variant.
type WriteError[T any] struct {
	Value    T
	Rejected bool // true: reader refused the value. false: pool was closed.
}

func (e *WriteError[T]) Error() string {
	if e.Rejected {
		return fmt.Sprintf("muxconn: write rejected: %v", e.Value)
	}
	return fmt.Sprintf("muxconn: write to closed endpoint: %v", e.Value)
}

// MapWriteError translates a WriteError[F] into a WriteError[T] using f to
// convert the payload, preserving the Rejected/Closed variant exactly.
func MapWriteError[F, T any](err *WriteError[F], f func(F) T) *WriteError[T] {
	if err == nil {
		return nil
	}
	return &WriteError[T]{Value: f(err.Value), Rejected: err.Rejected}
}

// wrapPoolWriteErr converts the error returned by a Pool.Write (or anything
// built directly on it) into the canonical WriteError[T] every layer above
// Pool uses, preserving the Rejected/Closed distinction. A context
// cancellation error is passed through unchanged, since that reflects the
// caller's own deadline rather than anything the pool observed.
func wrapPoolWriteErr[T any](err error) error {
	if err == nil {
		return nil
	}
	var rejected *RejectedError[T]
	if errors.As(err, &rejected) {
		return &WriteError[T]{Value: rejected.Value, Rejected: true}
	}
	var closed *ClosedError[T]
	if errors.As(err, &closed) {
		return &WriteError[T]{Value: closed.Value, Rejected: false}
	}
	return err
}

// BuildError is the taxonomy of failures Builder.Run can return. Every
// provider init failure is mapped into one of these categories.
type BuildError struct {
	Code BuildErrorCode
	Err  error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("muxconn: build failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("muxconn: build failed (%s)", e.Code)
}

func (e *BuildError) Unwrap() error { return e.Err }

// BuildErrorCode enumerates the coarse reasons Builder.Run can fail.
type BuildErrorCode uint8

const (
	// ErrConnNotSet means Builder.Run was called without a ConnProvider.
	ErrConnNotSet BuildErrorCode = iota + 1
	// ErrEncryptionInitFailed means EncryptionProvider.Init returned an error.
	ErrEncryptionInitFailed
	// ErrProviderInitFailed means a provider other than encryption (e.g.
	// ping) returned an error from Init. The spec's BuildError taxonomy
	// names only ConnNotSet and EncryptionInitFailed explicitly and allows
	// "other provider init failures map into these categories or are added
	// as extensions"; this is that extension.
	ErrProviderInitFailed
)

func (c BuildErrorCode) String() string {
	switch c {
	case ErrConnNotSet:
		return "ConnNotSet"
	case ErrEncryptionInitFailed:
		return "EncryptionInitFailed"
	case ErrProviderInitFailed:
		return "ProviderInitFailed"
	default:
		return "Unknown"
	}
}
