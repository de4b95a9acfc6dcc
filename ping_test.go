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

func TestDefaultPingAnswersPeerPing(t *testing.T) {
	clientFD, serverFD := net.Pipe()
	client := NewConn(clientFD)
	server := NewConn(serverFD)
	defer client.Close(CloseUser)
	defer server.Close(CloseUser)

	_, err := NewBuilder().SetConn(server).SetPing(NewDefaultPing(time.Hour, time.Hour)).Run(context.Background())
	require.NoError(t, err)

	clientKC, err := NewBuilder().SetConn(client).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, clientKC.Kind(), byte(1))

	require.NoError(t, clientKC.Write(context.Background(), []byte{pingByte}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := clientKC.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{pongByte}, reply)
}

func TestDefaultPingClosesOnTimeout(t *testing.T) {
	clientFD, serverFD := net.Pipe()
	client := NewConn(clientFD)
	server := NewConn(serverFD)
	defer client.Close(CloseUser)
	defer server.Close(CloseUser)

	_, err := NewBuilder().SetConn(client).SetPing(NewDefaultPing(20*time.Millisecond, 20*time.Millisecond)).Run(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, closed := client.IsClosed()
		return closed
	}, 2*time.Second, 10*time.Millisecond)

	code, _ := client.IsClosed()
	require.Equal(t, ClosePingTimeout, code)
}
