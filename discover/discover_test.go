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

package discover

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWireMagicsAreFiveBytes(t *testing.T) {
	require.Len(t, Search, 5)
	require.Len(t, Answer, 5)
	require.NotEqual(t, Search, Answer)
}

func TestDefaultAddr(t *testing.T) {
	require.Equal(t, "239.255.255.250:55669", DefaultAddr)
}

func TestNewUDPBeaconRejectsBadAddr(t *testing.T) {
	_, err := NewUDPBeacon("not-an-address")
	require.Error(t, err)
}
