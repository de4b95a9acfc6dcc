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
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// runtimeGC forces a couple of GC cycles so pending finalizers run; used
// only to exercise the drop-defaults-to-accept path deterministically in
// tests.
func runtimeGC() {
	runtime.GC()
	runtime.GC()
}

func TestPoolWriteReadAccept(t *testing.T) {
	p := NewPool[int]()
	errCh := make(chan error, 1)
	go func() { errCh <- p.Write(context.Background(), 42) }()

	guard, err := p.Read(context.Background())
	require.NoError(t, err)
	require.NotNil(t, guard)
	require.Equal(t, 42, guard.Value())
	require.Equal(t, 42, guard.Accept())

	require.NoError(t, <-errCh)
}

func TestPoolRejectRoundTrip(t *testing.T) {
	p := NewPool[int]()
	errCh := make(chan error, 1)
	go func() { errCh <- p.Write(context.Background(), 1) }()

	guard, err := p.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, guard.Reject())

	err = <-errCh
	var rejected *RejectedError[int]
	require.True(t, errors.As(err, &rejected))
	require.Equal(t, 1, rejected.Value)
}

func TestPoolSecondWriterBlocksUntilFirstResolved(t *testing.T) {
	p := NewPool[int]()
	firstTaken := make(chan struct{})
	release := make(chan struct{})
	done1 := make(chan error, 1)
	done2 := make(chan error, 1)

	go func() { done1 <- p.Write(context.Background(), 1) }()
	go func() {
		guard, err := p.Read(context.Background())
		require.NoError(t, err)
		close(firstTaken)
		<-release
		guard.Accept()
	}()
	<-firstTaken

	go func() { done2 <- p.Write(context.Background(), 2) }()

	select {
	case <-done2:
		t.Fatal("second writer completed before first transaction resolved")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done1)

	guard2, err := p.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, guard2.Accept())
	require.NoError(t, <-done2)
}

func TestPoolCloseWithEmptySlotWakesPending(t *testing.T) {
	p := NewPool[int]()
	readErr := make(chan error, 1)
	go func() {
		guard, err := p.Read(context.Background())
		require.Nil(t, guard)
		readErr <- err
	}()
	time.Sleep(10 * time.Millisecond)
	p.Close()
	require.NoError(t, <-readErr)

	err := p.Write(context.Background(), 7)
	var closed *ClosedError[int]
	require.True(t, errors.As(err, &closed))
	require.Equal(t, 7, closed.Value)
}

func TestPoolCloseDoesNotLoseInFlightValue(t *testing.T) {
	p := NewPool[int]()
	writeErr := make(chan error, 1)
	go func() { writeErr <- p.Write(context.Background(), 9) }()

	guard, err := p.Read(context.Background())
	require.NoError(t, err)

	p.Close()
	require.Equal(t, 9, guard.Accept())
	require.NoError(t, <-writeErr)
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	p := NewPool[int]()
	require.NotPanics(t, func() {
		p.Close()
		p.Close()
		p.Close()
	})
}

func TestPoolDropGuardDefaultsToAccept(t *testing.T) {
	p := NewPool[int]()
	writeErr := make(chan error, 1)
	go func() { writeErr <- p.Write(context.Background(), 5) }()

	func() {
		guard, err := p.Read(context.Background())
		require.NoError(t, err)
		_ = guard // deliberately never call Accept/Reject
	}()

	runtimeGC()
	select {
	case err := <-writeErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("writer never unblocked after guard was dropped without resolution")
	}
}

func TestPoolStressManyProducersOneConsumer(t *testing.T) {
	const n = 1000
	p := NewPool[int]()
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			require.NoError(t, p.Write(context.Background(), i))
		}()
	}

	seen := make([]int, 0, n)
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		for len(seen) < n {
			guard, err := p.Read(context.Background())
			require.NoError(t, err)
			mu.Lock()
			seen = append(seen, guard.Accept())
			mu.Unlock()
		}
		close(done)
	}()

	wg.Wait()
	<-done

	sort.Ints(seen)
	for i := 0; i < n; i++ {
		require.Equal(t, i, seen[i])
	}
}
