// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPMC is a multi-producer multi-consumer bounded ring buffer.
//
// Both sides reserve their index by compare-and-swap on the shared counter,
// then spin on the reserved slot's full flag: a producer waits for the
// slot to read empty before writing, a consumer waits for it to read full
// before reading. This trades FAA's contention-free reservation for a
// two-step handoff per slot; acceptable at the element counts this package
// targets, and it keeps capacity at n physical slots instead of 2n.
type MPMC[T any] struct {
	_      pad
	head   atomix.Uint64 // producer reservation counter (CAS)
	_      pad
	tail   atomix.Uint64 // consumer reservation counter (CAS)
	_      pad
	buffer []mpmcSlot[T]
	mask   uint64
}

type mpmcSlot[T any] struct {
	full atomix.Bool
	data T
	_    padShort
}

// NewMPMC creates a new MPMC ring. Capacity rounds up to the next power of
// two; panics if capacity < 2.
func NewMPMC[T any](capacity int) *MPMC[T] {
	checkCapacity(capacity)

	n := uint64(roundToPow2(capacity))
	return &MPMC[T]{
		buffer: make([]mpmcSlot[T], n),
		mask:   n - 1,
	}
}

// Enqueue adds an element to the ring (multiple producers safe).
// Returns ErrWouldBlock if the ring is full.
func (q *MPMC[T]) Enqueue(elem *T) error {
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
	sw2 := spin.Wait{}
	for slot.full.LoadAcquire() {
		sw2.Once()
	}
	slot.data = *elem
	slot.full.StoreRelease(true)
	return nil
}

// Dequeue removes and returns an element (multiple consumers safe).
// Returns (zero-value, ErrWouldBlock) if the ring is empty.
func (q *MPMC[T]) Dequeue() (T, error) {
	sw := spin.Wait{}
	tail := q.tail.LoadAcquire()
	for {
		if tail == q.head.LoadAcquire() {
			var zero T
			return zero, ErrWouldBlock
		}
		if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
			break
		}
		sw.Once()
		tail = q.tail.LoadAcquire()
	}

	slot := &q.buffer[tail&q.mask]
	sw2 := spin.Wait{}
	for !slot.full.LoadAcquire() {
		sw2.Once()
	}
	elem := slot.data
	var zero T
	slot.data = zero
	slot.full.StoreRelease(false)
	return elem, nil
}

// Cap returns the ring capacity.
func (q *MPMC[T]) Cap() int {
	return int(q.mask + 1)
}
