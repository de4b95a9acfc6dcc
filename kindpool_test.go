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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testKeyed struct {
	kind  byte
	value int
}

func (t testKeyed) Kind() byte { return t.kind }

func TestKindPoolDispatchesByKind(t *testing.T) {
	kp := NewKindPool[byte, testKeyed]()

	go func() {
		require.NoError(t, kp.Write(context.Background(), testKeyed{kind: 3, value: 100}))
	}()
	go func() {
		require.NoError(t, kp.Write(context.Background(), testKeyed{kind: 7, value: 200}))
	}()

	guard7, err := kp.Read(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, byte(7), guard7.Value().Kind())
	require.Equal(t, 200, guard7.Accept().value)

	guard3, err := kp.Read(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, byte(3), guard3.Value().Kind())
	require.Equal(t, 100, guard3.Accept().value)
}

func TestKindPoolCloseThenWriteReturnsClosed(t *testing.T) {
	kp := NewKindPool[byte, testKeyed]()
	kp.Close()

	err := kp.Write(context.Background(), testKeyed{kind: 1, value: 1})
	var closed *ClosedError[testKeyed]
	require.True(t, errors.As(err, &closed))
}

func TestKindPoolWriteThenCloseStillDeliversThatValue(t *testing.T) {
	kp := NewKindPool[byte, testKeyed]()

	writeErr := make(chan error, 1)
	go func() { writeErr <- kp.Write(context.Background(), testKeyed{kind: 5, value: 9}) }()

	time.Sleep(10 * time.Millisecond)
	kp.Close()

	guard, err := kp.Read(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, guard)
	require.Equal(t, 9, guard.Accept().value)
	require.NoError(t, <-writeErr)

	guard2, err := kp.Read(context.Background(), 5)
	require.NoError(t, err)
	require.Nil(t, guard2)
}

func TestKindPoolCloseCascadesAndIsIdempotent(t *testing.T) {
	kp := NewKindPool[byte, testKeyed]()
	_ = kp.poolFor(1)
	_ = kp.poolFor(2)

	require.NotPanics(t, func() {
		kp.Close()
		kp.Close()
	})

	guard, err := kp.Read(context.Background(), 1)
	require.NoError(t, err)
	require.Nil(t, guard)
}
