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
	"sync"
)

// Keyed is implemented by values that can be dispatched into a KindPool by
// an intrinsic key, such as *Frame's Kind() byte.
type Keyed[K comparable] interface {
	Kind() K
}

// KindPool is a lazily-populated map from kind-key to an independent
// Pool[T]. Write dispatches on v.Kind(); Read(k) waits on the pool for that
// specific key, creating it on first reference. Within one key, writes and
// reads are totally ordered; there is no ordering guarantee across keys.
type KindPool[K comparable, T Keyed[K]] struct {
	mu     sync.RWMutex
	pools  map[K]*Pool[T]
	closed bool
}

// NewKindPool constructs an open, empty KindPool.
func NewKindPool[K comparable, T Keyed[K]]() *KindPool[K, T] {
	return &KindPool[K, T]{pools: make(map[K]*Pool[T])}
}

// Write dispatches v to the pool for v.Kind(), creating that pool on first
// use. Writing to a closed KindPool returns ClosedError without touching
// any child pool, even if one already exists for this kind.
func (kp *KindPool[K, T]) Write(ctx context.Context, v T) error {
	if kp.isClosed() {
		return &ClosedError[T]{Value: v}
	}
	pool := kp.poolFor(v.Kind())
	return pool.Write(ctx, v)
}

// Read waits for the next value with kind k, creating that kind's pool on
// first reference if the KindPool is not closed.
func (kp *KindPool[K, T]) Read(ctx context.Context, k K) (*Guard[T], error) {
	if kp.isClosed() {
		return nil, nil
	}
	pool := kp.poolFor(k)
	return pool.Read(ctx)
}

// Close cascades to every child pool created so far and is idempotent.
// Entries are never removed from the map before Close, even once empty,
// so that a Read racing a Write for a brand-new kind always resolves
// against the same Pool instance.
func (kp *KindPool[K, T]) Close() {
	kp.mu.Lock()
	if kp.closed {
		kp.mu.Unlock()
		return
	}
	kp.closed = true
	pools := make([]*Pool[T], 0, len(kp.pools))
	for _, p := range kp.pools {
		pools = append(pools, p)
	}
	kp.mu.Unlock()

	for _, p := range pools {
		p.Close()
	}
}

func (kp *KindPool[K, T]) isClosed() bool {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	return kp.closed
}

func (kp *KindPool[K, T]) poolFor(k K) *Pool[T] {
	kp.mu.RLock()
	p, ok := kp.pools[k]
	kp.mu.RUnlock()
	if ok {
		return p
	}

	kp.mu.Lock()
	defer kp.mu.Unlock()
	if p, ok = kp.pools[k]; ok {
		return p
	}
	p = NewPool[T]()
	kp.pools[k] = p
	return p
}
