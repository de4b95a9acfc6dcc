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

import "io"

// readChunkHint is how much spare capacity ConcatBuf.ReadFrom guarantees
// before issuing a single underlying Read. It is a throughput knob, not a
// protocol constant.
const readChunkHint = 4096

// partialChunk tracks a frame whose header has been parsed but whose body
// has not fully arrived yet. While it is set, ConcatBuf parses no new
// headers: every subsequently buffered byte is consumed into completing it.
type partialChunk struct {
	chunk  []byte // header + kind + body, preallocated to its final size
	filled int    // bytes of chunk already written, starting from offset 0
}

// ConcatBuf incrementally extracts length-prefixed Frames out of an
// arbitrary byte stream. It tolerates headers and bodies split across any
// number of underlying reads, including pathological one-byte-at-a-time
// arrival.
//
// A ConcatBuf is not safe for concurrent use; it is owned by exactly one
// reader (the Conn read worker).
type ConcatBuf struct {
	headerLen int
	buf       []byte
	size      int // buf[:size] holds buffered, not-yet-consumed bytes
	partial   *partialChunk
}

// NewConcatBuf constructs a deframer for frames with the given header
// width. capacity must be at least 2*(headerLen+maxBodyLen) so that two
// maximal frames can coexist across a read boundary; smaller values are
// reported as ErrBufferTooSmall. Beyond this initial capacity, Write and
// ReadFrom grow the buffer on demand.
func NewConcatBuf(headerLen int, capacity int) (*ConcatBuf, error) {
	if headerLen <= 0 {
		headerLen = DefaultHeaderLen
	}
	minCap := 2 * (headerLen + int(maxBodyLen(headerLen)))
	if capacity < minCap {
		return nil, ErrBufferTooSmall
	}
	return &ConcatBuf{
		headerLen: headerLen,
		buf:       make([]byte, capacity),
	}, nil
}

// Write appends bytes received from the transport into the accumulator.
// It never blocks and never fails; capacity grows on demand.
func (c *ConcatBuf) Write(p []byte) (int, error) {
	c.ensureSpare(len(p))
	copy(c.buf[c.size:], p)
	c.size += len(p)
	return len(p), nil
}

// ReadFrom performs a single Read from r into spare capacity. It mirrors
// the read worker's "try_read_buf" step: non-blocking from ConcatBuf's
// point of view, blocking or not entirely up to r.
func (c *ConcatBuf) ReadFrom(r io.Reader) (int, error) {
	c.ensureSpare(readChunkHint)
	n, err := r.Read(c.buf[c.size:])
	c.size += n
	return n, err
}

// TryReadChunk extracts at most one complete Frame from the buffered bytes.
// It returns (nil, nil) when no complete frame is available yet -- callers
// must drain by calling until that happens after every read from the
// transport. A non-nil error indicates a protocol violation (a length field
// the buffer configuration can never satisfy).
func (c *ConcatBuf) TryReadChunk() (*Frame, error) {
	if c.partial != nil {
		return c.continuePartial()
	}
	return c.startChunk()
}

func (c *ConcatBuf) continuePartial() (*Frame, error) {
	p := c.partial
	need := len(p.chunk) - p.filled
	if c.size >= need {
		copy(p.chunk[p.filled:], c.buf[:need])
		c.consume(need)
		c.partial = nil
		return &Frame{headerLen: c.headerLen, buf: p.chunk}, nil
	}
	copy(p.chunk[p.filled:], c.buf[:c.size])
	p.filled += c.size
	c.consume(c.size)
	c.compact()
	return nil, nil
}

func (c *ConcatBuf) startChunk() (*Frame, error) {
	if c.size < c.headerLen {
		c.compact()
		return nil, nil
	}
	length := uintBE(c.buf[:c.headerLen])
	maxLength := maxBodyLen(c.headerLen) + 1 // length field counts the kind byte too
	if length == 0 || int64(length) > maxLength {
		return nil, ErrTooLong
	}

	total := c.headerLen + int(length)
	chunk := make([]byte, total)
	copy(chunk[:c.headerLen], c.buf[:c.headerLen])

	bodyAvail := c.size - c.headerLen
	need := int(length)
	if bodyAvail >= need {
		copy(chunk[c.headerLen:], c.buf[c.headerLen:c.headerLen+need])
		c.consume(c.headerLen + need)
		return &Frame{headerLen: c.headerLen, buf: chunk}, nil
	}

	copy(chunk[c.headerLen:], c.buf[c.headerLen:c.size])
	filled := c.headerLen + bodyAvail
	c.consume(c.size)
	c.partial = &partialChunk{chunk: chunk, filled: filled}
	c.compact()
	return nil, nil
}

// consume drops the first n bytes of the buffered region, sliding the rest
// down to offset 0. Because every drop goes through here, the buffered bytes
// always start at offset 0, and compact only has to guarantee spare room
// afterward.
func (c *ConcatBuf) consume(n int) {
	copy(c.buf, c.buf[n:c.size])
	c.size -= n
}

// compact guarantees the buffer has room to make forward progress even if
// every subsequent read is a single byte. The remaining prefix is already
// at offset 0 after consume; compact only needs to grow capacity when the
// tail has filled up.
func (c *ConcatBuf) compact() {
	c.ensureSpare(0)
}

// ensureSpare grows buf, if necessary, so at least n bytes (or one read
// chunk, whichever is larger) of free space follow c.size.
func (c *ConcatBuf) ensureSpare(n int) {
	want := n
	if want < readChunkHint {
		want = readChunkHint
	}
	if cap(c.buf)-c.size >= want {
		return
	}
	grown := make([]byte, c.size+want)
	copy(grown, c.buf[:c.size])
	c.buf = grown
}
