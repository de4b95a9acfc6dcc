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
	"time"
)

// Wire bytes for the default ping protocol's single-byte messages. Any
// other inbound byte on the ping kind still counts as liveness activity;
// only a leading pingByte triggers an immediate pong.
const (
	pingByte byte = 0
	pongByte byte = 1
)

const (
	// DefaultPingLongDuration is how long DefaultPing waits for any
	// inbound activity before proactively probing the peer.
	DefaultPingLongDuration = 30 * time.Second
	// DefaultPingShortDuration is how long DefaultPing waits for a
	// response after sending a probe before declaring the peer dead.
	DefaultPingShortDuration = 5 * time.Second
)

// DefaultPing is the reference PingProvider: a reader loop that answers
// peer pings and records activity, and a prober loop that sends its own
// ping after a long silence and closes the connection if that also goes
// unanswered.
type DefaultPing struct {
	long, short time.Duration
}

// NewDefaultPing constructs a DefaultPing. A zero duration is replaced by
// its package default.
func NewDefaultPing(long, short time.Duration) *DefaultPing {
	if long <= 0 {
		long = DefaultPingLongDuration
	}
	if short <= 0 {
		short = DefaultPingShortDuration
	}
	return &DefaultPing{long: long, short: short}
}

// Init implements PingProvider: it mints its own KindConn and starts the
// reader and prober loops. The reader loop runs until that KindConn's
// connection closes; the prober loop runs until then or until ctx is done.
func (p *DefaultPing) Init(ctx context.Context, c *Context) error {
	kc, err := c.GetKindConn()
	if err != nil {
		return err
	}

	activity := make(chan struct{}, 1)
	go p.readerLoop(kc, activity)
	go p.proberLoop(ctx, kc, activity)
	return nil
}

func (p *DefaultPing) readerLoop(kc *KindConn, activity chan<- struct{}) {
	for {
		body, err := kc.Read(context.Background())
		if err != nil || body == nil {
			return
		}
		notify(activity)
		if len(body) > 0 && body[0] == pingByte {
			if werr := kc.Write(context.Background(), []byte{pongByte}); werr != nil {
				return
			}
		}
	}
}

func (p *DefaultPing) proberLoop(ctx context.Context, kc *KindConn, activity <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-activity:
			continue
		case <-time.After(p.long):
			if err := kc.Write(ctx, []byte{pingByte}); err != nil {
				kc.Close(ClosePingTimeout)
				return
			}
			select {
			case <-activity:
				continue
			case <-time.After(p.short):
				kc.Close(ClosePingTimeout)
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// notify delivers a non-blocking wakeup, coalescing with any pending one
// already in the channel so a burst of activity never blocks the reader
// loop on a slow prober.
func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
