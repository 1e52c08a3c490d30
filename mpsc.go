// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPSC is a multi-producer single-consumer bounded ring buffer.
//
// Producers reserve a slot by compare-and-swap on the shared producer
// counter; once reserved, a producer writes its payload and marks the slot
// ready with a release store. The single consumer reads the ready flag with
// acquire ordering before touching the payload, so a producer that has
// reserved a slot but not yet finished writing it is reported as "empty"
// for that slot rather than observed torn.
type MPSC[T any] struct {
	_      pad
	head   atomix.Uint64 // producer reservation counter (CAS)
	_      pad
	tail   atomix.Uint64 // consumer counter (single writer)
	_      pad
	buffer []mpscSlot[T]
	mask   uint64
}

type mpscSlot[T any] struct {
	ready atomix.Bool
	value T
	_     padShort
}

// NewMPSC creates a new MPSC ring. Capacity rounds up to the next power of
// two; panics if capacity < 2.
func NewMPSC[T any](capacity int) *MPSC[T] {
	checkCapacity(capacity)

	n := uint64(roundToPow2(capacity))
	return &MPSC[T]{
		buffer: make([]mpscSlot[T], n),
		mask:   n - 1,
	}
}

// Enqueue adds an element to the ring (multiple producers safe).
// Returns ErrWouldBlock if the ring is full.
func (q *MPSC[T]) Enqueue(elem *T) error {
	sw := spin.Wait{}
	head := q.head.LoadAcquire()
	for {
		if head-q.tail.LoadAcquire() == q.mask+1 {
			return ErrWouldBlock
		}
		if q.head.CompareAndSwapAcqRel(head, head+1) {
			break
		}
		sw.Once()
		head = q.head.LoadAcquire()
	}

	slot := &q.buffer[head&q.mask]
	slot.value = *elem
	slot.ready.StoreRelease(true)
	return nil
}

// Dequeue removes and returns an element (single consumer only).
// Returns (zero-value, ErrWouldBlock) if the ring is empty, including the
// case where the next slot has been reserved by a producer that has not
// yet finished writing it.
func (q *MPSC[T]) Dequeue() (T, error) {
	tail := q.tail.LoadRelaxed()
	head := q.head.LoadAcquire()
	if tail == head {
		var zero T
		return zero, ErrWouldBlock
	}

	slot := &q.buffer[tail&q.mask]
	if !slot.ready.LoadAcquire() {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := slot.value
	var zero T
	slot.value = zero
	slot.ready.StoreRelease(false)
	q.tail.StoreRelease(tail + 1)
	return elem, nil
}

// Cap returns the ring capacity.
func (q *MPSC[T]) Cap() int {
	return int(q.mask + 1)
}
