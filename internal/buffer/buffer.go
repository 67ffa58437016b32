// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package buffer provides the bounded drop-oldest queue that decouples the
// frame producer from the processing pipeline. A full buffer evicts its
// oldest resident item to admit a new one; the producer never blocks.
// Freshness over completeness: a live monitor must show what is happening
// now, not replay a backlog.
package buffer

import (
	"context"
	"sync"
)

// Ring is a bounded FIFO queue with drop-oldest backpressure.
// Push never blocks; Pop blocks until an item arrives, the buffer is
// closed, or the context is canceled.
type Ring[T any] struct {
	mu      sync.Mutex
	nonEmpty *sync.Cond

	items    []T
	head     int
	count    int
	capacity int

	closed  bool
	dropped uint64
}

// New creates a buffer holding at most capacity items.
// Capacity must be at least 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	b := &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
	b.nonEmpty = sync.NewCond(&b.mu)
	return b
}

// Push inserts an item, evicting the single oldest resident item if the
// buffer is full. It never blocks. Returns false if an eviction occurred
// or the buffer is closed (the item is discarded after close).
func (b *Ring[T]) Push(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.dropped++
		return false
	}

	evicted := false
	if b.count == b.capacity {
		// Drop oldest to keep the latest.
		var zero T
		b.items[b.head] = zero
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.dropped++
		evicted = true
	}

	b.items[(b.head+b.count)%b.capacity] = item
	b.count++
	b.nonEmpty.Signal()
	return !evicted
}

// Pop removes and returns the oldest item, blocking until one is available.
// The second return value is false when the buffer has been closed and
// drained, or the context is canceled; that is the termination sentinel
// consumers use to stop.
func (b *Ring[T]) Pop(ctx context.Context) (T, bool) {
	var zero T

	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.nonEmpty.Broadcast()
		b.mu.Unlock()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 {
		if b.closed || ctx.Err() != nil {
			return zero, false
		}
		b.nonEmpty.Wait()
	}

	return b.popLocked(), true
}

// TryPop removes and returns the oldest item without blocking.
func (b *Ring[T]) TryPop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.popLocked(), true
}

func (b *Ring[T]) popLocked() T {
	item := b.items[b.head]
	var zero T
	b.items[b.head] = zero
	b.head = (b.head + 1) % b.capacity
	b.count--
	return item
}

// Len returns the number of resident items.
func (b *Ring[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the configured capacity.
func (b *Ring[T]) Cap() int {
	return b.capacity
}

// Dropped returns the total number of items discarded by eviction or
// post-close pushes.
func (b *Ring[T]) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close marks the buffer closed and wakes all blocked consumers.
// Residual items remain poppable via TryPop; blocked Pop calls return
// the termination sentinel once the buffer is empty.
func (b *Ring[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.nonEmpty.Broadcast()
}

// Closed reports whether Close has been called.
func (b *Ring[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
