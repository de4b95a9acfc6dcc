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

// Package discover implements LAN peer discovery over UDP multicast: a
// searcher periodically broadcasts a fixed 5-byte magic on a multicast
// group, and any listener on that group replies directly to the searcher
// with its own fixed 5-byte magic. It is a leaf collaborator of this
// module, not used by Conn/Context/KindConn at all -- callers that find a
// peer this way still dial it with ordinary net.Dial and hand the result
// to a Builder like any other transport.
package discover

import (
	"context"
	"net"
	"time"
)

// DefaultAddr is the multicast group and port this package binds to unless
// told otherwise.
const DefaultAddr = "239.255.255.250:55669"

// Search and Answer are the fixed 5-byte magics exchanged on the wire. They
// carry no payload and no version field; a mismatch on either side is
// simply ignored rather than treated as an error, since unrelated traffic
// can legitimately land on the same multicast group.
var (
	Search = [5]byte{8, 100, 193, 210, 19}
	Answer = [5]byte{65, 238, 212, 64, 80}
)

// Beacon is the interface this module's Builder/Conn layer never depends
// on: discovery is strictly out of band, used only to learn a peer's
// address before dialing it normally.
type Beacon interface {
	// Search sends a Search datagram to the multicast group every
	// interval until ctx is done, invoking onAnswer for every Answer
	// datagram received in response.
	Search(ctx context.Context, interval time.Duration, onAnswer func(peer net.Addr)) error
	// Listen replies with an Answer datagram, sent directly to the
	// sender, for every Search datagram received on the group, until ctx
	// is done.
	Listen(ctx context.Context) error
	Close() error
}

// UDPBeacon is the reference Beacon: a single multicast UDP socket shared
// by both the searcher and listener roles.
type UDPBeacon struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

// NewUDPBeacon binds a multicast UDP socket on addr (DefaultAddr if empty).
func NewUDPBeacon(addr string) (*UDPBeacon, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenMulticastUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &UDPBeacon{conn: conn, addr: udpAddr}, nil
}

// Search implements Beacon.Search.
func (b *UDPBeacon) Search(ctx context.Context, interval time.Duration, onAnswer func(peer net.Addr)) error {
	go b.readLoop(ctx, func(magic [5]byte, from *net.UDPAddr) {
		if magic == Answer && onAnswer != nil {
			onAnswer(from)
		}
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	if _, err := b.conn.WriteToUDP(Search[:], b.addr); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := b.conn.WriteToUDP(Search[:], b.addr); err != nil {
				return err
			}
		}
	}
}

// Listen implements Beacon.Listen.
func (b *UDPBeacon) Listen(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- b.readLoop(ctx, func(magic [5]byte, from *net.UDPAddr) {
			if magic == Search {
				b.conn.WriteToUDP(Answer[:], from)
			}
		})
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (b *UDPBeacon) readLoop(ctx context.Context, onMagic func(magic [5]byte, from *net.UDPAddr)) error {
	buf := make([]byte, 5)
	for {
		if dl, ok := ctx.Deadline(); ok {
			b.conn.SetReadDeadline(dl)
		} else {
			b.conn.SetReadDeadline(time.Now().Add(time.Second))
		}
		n, from, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		if n != 5 {
			continue
		}
		var magic [5]byte
		copy(magic[:], buf[:5])
		onMagic(magic, from)
	}
}

// Close closes the underlying socket, unblocking any in-progress Search or
// Listen with an error.
func (b *UDPBeacon) Close() error { return b.conn.Close() }
