// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import (
	"code.hybscloud.com/atomix"
)

// SPSC is a single-producer single-consumer bounded ring buffer.
//
// Based on Lamport's ring buffer with cached-index optimization: the
// producer caches the consumer's dequeue index, and vice versa, reducing
// cross-core cache line traffic on the common path where the ring is
// neither full nor empty.
//
// Exactly one goroutine may call Enqueue over the ring's lifetime; exactly
// one (possibly different) goroutine may call Dequeue. Both operations are
// wait-free: no spin loop, no retry.
type SPSC[T any] struct {
	_          pad
	head       atomix.Uint64 // consumer reads from here
	_          pad
	cachedTail uint64 // consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // producer writes here
	_          pad
	cachedHead uint64 // producer's cached view of head
	_          pad
	buffer     []T
	mask       uint64
}

// NewSPSC creates a new SPSC ring. Capacity rounds up to the next power of
// two; panics if capacity < 2.
func NewSPSC[T any](capacity int) *SPSC[T] {
	checkCapacity(capacity)

	n := uint64(roundToPow2(capacity))
	return &SPSC[T]{
		buffer: make([]T, n),
		mask:   n - 1,
	}
}

// Enqueue adds an element to the ring (producer only).
// Returns ErrWouldBlock if the ring is full.
func (q *SPSC[T]) Enqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead >= q.mask+1 {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead >= q.mask+1 {
			return ErrWouldBlock
		}
	}

	q.buffer[tail&q.mask] = *elem
	q.tail.StoreRelease(tail + 1)
	return nil
}

// Dequeue removes and returns an element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the ring is empty.
func (q *SPSC[T]) Dequeue() (T, error) {
	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			var zero T
			return zero, ErrWouldBlock
		}
	}

	elem := q.buffer[head&q.mask]
	var zero T
	q.buffer[head&q.mask] = zero
	q.head.StoreRelease(head + 1)
	return elem, nil
}

// Cap returns the ring capacity.
func (q *SPSC[T]) Cap() int {
	return int(q.mask + 1)
}
