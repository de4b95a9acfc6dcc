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

// Listener accepts transport connections, wraps each as a *Conn, and
// delivers them one at a time through a Pool[*Conn]. Accept reads that
// pool; closing the Listener closes the pool, which unblocks any pending
// Accept with (nil, nil) and ends the accept loop.
type Listener struct {
	ln   net.Listener
	pool *Pool[*Conn]

	connCtx    context.Context
	connCancel context.CancelFunc

	connOpts []ConnOption
	log      Logger
}

// ListenerOption configures a Listener at construction time.
type ListenerOption func(*Listener)

// WithListenerLogger attaches a diagnostic logger; the default is a no-op.
func WithListenerLogger(l Logger) ListenerOption {
	return func(ls *Listener) { ls.log = l }
}

// WithAcceptedConnOptions applies opts to every Conn the Listener produces,
// in addition to the Listener's own close fan-out.
func WithAcceptedConnOptions(opts ...ConnOption) ListenerOption {
	return func(ls *Listener) { ls.connOpts = append(ls.connOpts, opts...) }
}

// NewListener wraps ln and immediately starts its accept loop.
func NewListener(ln net.Listener, opts ...ListenerOption) *Listener {
	connCtx, connCancel := context.WithCancel(context.Background())
	l := &Listener{
		ln:         ln,
		pool:       NewPool[*Conn](),
		connCtx:    connCtx,
		connCancel: connCancel,
		log:        nopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.acceptLoop()
	return l
}

func (l *Listener) acceptLoop() {
	defer l.pool.Close()
	for {
		fd, err := l.ln.Accept()
		if err != nil {
			l.log.Warn("muxconn: listener accept failed, stopping", "err", err)
			return
		}
		opts := append([]ConnOption{WithCloseContext(l.connCtx)}, l.connOpts...)
		c := NewConn(fd, opts...)
		if err := l.pool.Write(context.Background(), c); err != nil {
			c.Close(CloseUser)
			return
		}
	}
}

// Accept waits for the next accepted connection. A nil Conn with a nil
// error means the Listener has closed.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	guard, err := l.pool.Read(ctx)
	if err != nil || guard == nil {
		return nil, err
	}
	return guard.Accept(), nil
}

// LocalAddr returns the bound address.
func (l *Listener) LocalAddr() net.Addr { return l.ln.Addr() }

// CloseAllConnections closes every Conn this Listener has produced so far,
// via the shared close notifier they were constructed with, without
// stopping the Listener from accepting new connections.
func (l *Listener) CloseAllConnections() { l.connCancel() }

// Close stops the accept loop and closes every connection this Listener
// has produced.
func (l *Listener) Close() error {
	l.connCancel()
	l.pool.Close()
	return l.ln.Close()
}
