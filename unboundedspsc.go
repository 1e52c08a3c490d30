// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import "sync/atomic"

// UnboundedSPSC is an unbounded single-producer single-consumer FIFO queue
// backed by a linked list with a sentinel node.
//
// Unlike the bounded rings, UnboundedSPSC never reports ErrWouldBlock on
// Enqueue — it grows with each push. The consumer's Dequeue remains
// wait-free and allocation-free; the producer allocates one node per
// Enqueue.
//
// Exactly one goroutine may call Enqueue over the queue's lifetime; exactly
// one (possibly different) goroutine may call Dequeue.
type UnboundedSPSC[T any] struct {
	_    pad
	head atomic.Pointer[unboundedSPSCNode[T]] // consumer: points at sentinel/consumed node
	_    pad
	tail atomic.Pointer[unboundedSPSCNode[T]] // producer: points at last linked node
	_    pad
}

type unboundedSPSCNode[T any] struct {
	next  atomic.Pointer[unboundedSPSCNode[T]]
	value T
}

// NewUnboundedSPSC creates an empty unbounded queue. The sentinel node
// carries no value; it exists purely to give head and tail a node to point
// at even when the queue is logically empty, so Enqueue and Dequeue never
// have to special-case an empty list.
func NewUnboundedSPSC[T any]() *UnboundedSPSC[T] {
	sentinel := &unboundedSPSCNode[T]{}
	q := &UnboundedSPSC[T]{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue appends a value to the queue (producer only). Always succeeds.
func (q *UnboundedSPSC[T]) Enqueue(elem *T) error {
	n := &unboundedSPSCNode[T]{value: *elem}

	tail := q.tail.Load()
	tail.next.Store(n)
	q.tail.Store(n)
	return nil
}

// Dequeue removes and returns the oldest value (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *UnboundedSPSC[T]) Dequeue() (T, error) {
	head := q.head.Load()

	next := head.next.Load()
	if next == nil {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := next.value
	var zero T
	next.value = zero
	q.head.Store(next)
	return elem, nil
}
