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
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Conn owns a transport socket and turns it into a framed, kind-multiplexed
// endpoint: a read worker parses Frames out of the stream and feeds an
// inbound KindPool; a write worker drains an outbound Pool onto the wire.
// Conn is the only subsystem that talks to the raw net.Conn directly --
// everything above it (Context, KindConn) exchanges Frames through the two
// pools.
//
// Go's net.Conn already guarantees a Write either sends the whole buffer or
// returns a definitive error, so unlike a raw non-blocking socket the write
// worker needs no manual partial-write resumption loop; the resumption the
// spec describes is handled for us by the standard library.
type Conn struct {
	id        uuid.UUID
	fd        net.Conn
	headerLen int

	Inbound  *KindPool[byte, *Frame]
	Outbound *Pool[*Frame]

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	closeOnce   sync.Once
	readClosed  atomic.Bool
	writeClosed atomic.Bool
	closed      atomic.Bool
	closeCode   atomic.Int32

	log Logger
}

// ConnOption configures a Conn at construction time.
type ConnOption func(*Conn)

// WithHeaderLen overrides the 2-byte default frame length-field width.
func WithHeaderLen(n int) ConnOption {
	return func(c *Conn) { c.headerLen = n }
}

// WithLogger attaches a diagnostic logger; the default is a no-op.
func WithLogger(l Logger) ConnOption {
	return func(c *Conn) { c.log = l }
}

// WithCloseContext ties the Conn's lifetime to an external context, such as
// a Listener's "close all connections" notifier: cancelling ctx closes this
// Conn exactly as Close would.
func WithCloseContext(ctx context.Context) ConnOption {
	return func(c *Conn) {
		go func() {
			<-ctx.Done()
			c.Close(CloseUser)
		}()
	}
}

// NewConn wraps fd and immediately starts its read and write workers.
func NewConn(fd net.Conn, opts ...ConnOption) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		id:        uuid.New(),
		fd:        fd,
		headerLen: DefaultHeaderLen,
		Inbound:   NewKindPool[byte, *Frame](),
		Outbound:  NewPool[*Frame](),
		ctx:       ctx,
		cancel:    cancel,
		log:       nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	g, _ := errgroup.WithContext(context.Background())
	c.group = g
	g.Go(c.readLoop)
	g.Go(c.writeLoop)
	return c
}

// HeaderLen reports the frame length-field width this Conn was configured
// with.
func (c *Conn) HeaderLen() int { return c.headerLen }

// ID returns this Conn's identifier, generated once at construction and
// used only for correlating log lines across its two workers.
func (c *Conn) ID() uuid.UUID { return c.id }

// LocalAddr returns the transport's local address.
func (c *Conn) LocalAddr() net.Addr { return c.fd.LocalAddr() }

// RemoteAddr returns the transport's remote address.
func (c *Conn) RemoteAddr() net.Addr { return c.fd.RemoteAddr() }

// Read implements ConnProvider.Read: it waits for the next frame of the
// given kind out of Inbound and implicitly accepts it, since Context never
// has a reason to refuse an inbound frame once it has been parsed off the
// wire. A nil Frame with a nil error means the connection closed with
// nothing pending for that kind.
func (c *Conn) Read(ctx context.Context, kind byte) (*Frame, error) {
	guard, err := c.Inbound.Read(ctx, kind)
	if err != nil || guard == nil {
		return nil, err
	}
	return guard.Accept(), nil
}

// Write implements ConnProvider.Write: it enqueues frame onto Outbound and
// waits for the write worker's accept/reject, translating the result into
// the canonical WriteError[*Frame] shape (or passing a context error
// through unchanged).
func (c *Conn) Write(ctx context.Context, frame *Frame) error {
	return wrapPoolWriteErr[*Frame](c.Outbound.Write(ctx, frame))
}

// Close implements ConnProvider.Close: it records code for a subsequent
// IsClosed and closes the transport, which in turn unblocks the read/write
// workers' blocking calls so they can wind the pools down. It is idempotent
// and safe to call concurrently with in-flight reads/writes.
func (c *Conn) Close(code CloseCode) error {
	var err error
	c.closeOnce.Do(func() {
		c.closeCode.Store(int32(code))
		c.closed.Store(true)
		c.cancel()
		err = c.fd.Close()
	})
	return err
}

// IsClosed implements ConnProvider.IsClosed.
func (c *Conn) IsClosed() (CloseCode, bool) {
	if !c.closed.Load() {
		return 0, false
	}
	return CloseCode(c.closeCode.Load()), true
}

// Readable implements ConnProvider.Readable. Go's net.Conn has no exposed
// readiness poll the way a raw non-blocking socket would, so this reports
// the only signal available at this layer without reinventing one: it
// blocks until Close is called (directly or through WithCloseContext), or
// ctx is done, whichever comes first. A transport error or EOF seen by the
// workers does not by itself end the wait. Callers that want per-frame
// activity should read the KindConn directly instead.
func (c *Conn) Readable(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return errConnClosed
	}
}

// Wait blocks until both workers have exited.
func (c *Conn) Wait() error { return c.group.Wait() }

// readLoop is the sole writer to Inbound. It parses frames out of the
// stream as they arrive, including across partial reads, and exits on EOF,
// a read error, or the inbound pool reporting closed. Conn.Close ends it
// through the read error of the closed transport; a frame whose Inbound
// write fails for any other reason (a context error, a reject) is dropped.
func (c *Conn) readLoop() error {
	defer c.markReadClosed()

	cb, err := NewConcatBuf(c.headerLen, 2*(c.headerLen+int(maxBodyLen(c.headerLen))))
	if err != nil {
		return err
	}
	for {
		n, err := cb.ReadFrom(c.fd)
		if n > 0 {
			for {
				frame, perr := cb.TryReadChunk()
				if perr != nil {
					c.log.Warn("muxconn: protocol error framing inbound stream", "conn", c.id, "err", perr)
					return perr
				}
				if frame == nil {
					break
				}
				if werr := c.Inbound.Write(c.ctx, frame); werr != nil {
					var closed *ClosedError[*Frame]
					if errors.As(werr, &closed) {
						return nil
					}
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// writeLoop is the sole reader of Outbound. Every value it accepts is
// guaranteed to have left the process by the time Accept resolves the
// paired Write; every failure is surfaced to the writer as a reject so it
// can retry or discard the frame.
func (c *Conn) writeLoop() error {
	defer c.markWriteClosed()

	for {
		guard, err := c.Outbound.Read(c.ctx)
		if err != nil {
			return err
		}
		if guard == nil {
			return nil
		}
		frame := guard.Value()
		if _, werr := c.fd.Write(frame.Bytes()); werr != nil {
			guard.Reject()
			c.log.Warn("muxconn: write to transport failed", "conn", c.id, "err", werr)
			return werr
		}
		guard.Accept()
	}
}

func (c *Conn) markReadClosed() {
	c.readClosed.Store(true)
	c.Inbound.Close()
}

func (c *Conn) markWriteClosed() {
	c.writeClosed.Store(true)
	c.Outbound.Close()
}

// ConnState describes the observable lifecycle stage of a Conn.
type ConnState uint8

const (
	// StateOpen: both directions are functioning.
	StateOpen ConnState = iota
	// StateDraining: one direction has closed, the other still works.
	StateDraining
	// StateClosed: both directions have closed.
	StateClosed
)

// State reports the Conn's current lifecycle stage.
func (c *Conn) State() ConnState {
	r, w := c.readClosed.Load(), c.writeClosed.Load()
	switch {
	case r && w:
		return StateClosed
	case r || w:
		return StateDraining
	default:
		return StateOpen
	}
}
