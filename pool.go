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
	"runtime"
	"sync"
)

// request is what crosses from a blocked Write to whichever Read pairs with
// it. resp is buffered (capacity 1) so that resolving it from a Guard's
// finalizer goroutine can never block.
type request[T any] struct {
	value T
	resp  chan response[T]
}

type response[T any] struct {
	rejected bool
}

// Pool is a single-slot synchronous rendezvous channel: a writer offering a
// value blocks until exactly one reader has resolved it with accept or
// reject, and learns which one happened. It is the foundation every other
// concurrency primitive in this package (KindPool, Conn's worker pair) is
// built on.
//
// Pool[T] is safe for concurrent use by multiple writers and multiple
// readers. writerMu below is what gives it the "at most one pending writer"
// invariant: a second Write call blocks for the full duration of the first,
// not merely until a reader has picked the value up, so the slot stays
// logically occupied through the Taken state described in the package
// invariants.
type Pool[T any] struct {
	writerMu sync.Mutex

	reqCh   chan request[T]
	closeCh chan struct{}
	once    sync.Once
}

// NewPool constructs an open, empty Pool.
func NewPool[T any]() *Pool[T] {
	return &Pool[T]{
		reqCh:   make(chan request[T]),
		closeCh: make(chan struct{}),
	}
}

// Write offers v to whichever goroutine calls Read next, and blocks until
// that reader has resolved it (or the pool is/becomes closed with no reader
// in sight). ctx only bounds the wait for a reader to show up; once a
// reader has taken the value, Write always waits for its resolution,
// because close must not lose an in-flight value.
func (p *Pool[T]) Write(ctx context.Context, v T) error {
	p.writerMu.Lock()
	defer p.writerMu.Unlock()

	resp := make(chan response[T], 1)
	select {
	case p.reqCh <- request[T]{value: v, resp: resp}:
	case <-p.closeCh:
		return &ClosedError[T]{Value: v}
	case <-ctx.Done():
		return ctx.Err()
	}

	r := <-resp
	if r.rejected {
		return &RejectedError[T]{Value: v}
	}
	return nil
}

// Read blocks until a writer offers a value or the pool closes. A nil
// Guard with a nil error means the pool is closed and no value is coming.
func (p *Pool[T]) Read(ctx context.Context) (*Guard[T], error) {
	select {
	case req := <-p.reqCh:
		g := &Guard[T]{req: req}
		runtime.SetFinalizer(g, (*Guard[T]).finalize)
		return g, nil
	case <-p.closeCh:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close is idempotent. It immediately unblocks every Read and Write that
// has not yet paired up; it does not affect a transaction that already has
// a Guard outstanding, which resolves normally regardless of Close.
func (p *Pool[T]) Close() {
	p.once.Do(func() { close(p.closeCh) })
}

// Guard is the linear capability a reader holds after Read returns a
// value: it must resolve with exactly one of Accept or Reject. Letting it
// be garbage collected without calling either has the same observable
// effect as Accept, emulating the spec's "drop = accept" semantics via a
// finalizer -- Go has no deterministic destructors, so this is a
// best-effort safety net, not a substitute for calling Accept/Reject
// explicitly on every path, including error returns.
type Guard[T any] struct {
	req  request[T]
	mu   sync.Mutex
	done bool
}

// Accept resolves the paired Write with success and returns the value.
func (g *Guard[T]) Accept() T {
	g.resolve(response[T]{rejected: false})
	return g.req.value
}

// Reject resolves the paired Write with RejectedError(value), returning the
// value to the writer's side.
func (g *Guard[T]) Reject() T {
	g.resolve(response[T]{rejected: true})
	return g.req.value
}

// Value returns the guarded value without resolving the guard.
func (g *Guard[T]) Value() T { return g.req.value }

func (g *Guard[T]) resolve(r response[T]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}
	g.done = true
	g.req.resp <- r
	runtime.SetFinalizer(g, nil)
}

func (g *Guard[T]) finalize() { g.Accept() }
