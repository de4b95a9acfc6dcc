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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnRoundTrip(t *testing.T) {
	clientFD, serverFD := net.Pipe()
	client := NewConn(clientFD)
	server := NewConn(serverFD)
	defer client.Close(CloseUser)
	defer server.Close(CloseUser)

	frame, err := NewFrame(DefaultHeaderLen, 0x05, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, client.Outbound.Write(context.Background(), frame))

	got, err := server.Inbound.Read(context.Background(), 0x05)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, []byte("hello"), got.Accept().Body())
}

func TestConnCloseDrainsBothPools(t *testing.T) {
	clientFD, serverFD := net.Pipe()
	client := NewConn(clientFD)
	server := NewConn(serverFD)
	defer server.Close(CloseUser)

	require.NoError(t, client.Close(CloseUser))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	guard, err := client.Inbound.Read(ctx, 0x01)
	require.NoError(t, err)
	require.Nil(t, guard)

	err = client.Outbound.Write(context.Background(), &Frame{})
	var closed *ClosedError[*Frame]
	require.ErrorAs(t, err, &closed)
}

func TestConnStateTransitionsOnPeerEOF(t *testing.T) {
	clientFD, serverFD := net.Pipe()
	client := NewConn(clientFD)
	server := NewConn(serverFD)
	defer client.Close(CloseUser)

	require.NoError(t, server.Close(CloseUser))

	require.Eventually(t, func() bool {
		return client.State() != StateOpen
	}, time.Second, 10*time.Millisecond)
}
