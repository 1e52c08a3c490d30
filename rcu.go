// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import "sync/atomic"

// RCU is a read-copy-update cell: readers see a consistent snapshot via a
// single atomic pointer load and never block, writers install a new
// snapshot built from the current one without ever mutating a value a
// reader might be holding.
//
// As with [Stack], the Go port drops shared_ptr bookkeeping: the garbage
// collector keeps a displaced snapshot alive for exactly as long as a
// reader still holds it, so [atomic.Pointer] is sufficient on its own.
type RCU[T any] struct {
	value atomic.Pointer[T]
}

// NewRCU creates a cell holding the given initial value.
func NewRCU[T any](initial T) *RCU[T] {
	r := &RCU[T]{}
	v := initial
	r.value.Store(&v)
	return r
}

// Read returns the current snapshot. Never blocks.
func (r *RCU[T]) Read() T {
	return *r.value.Load()
}

// Update builds a new snapshot from a copy of the current value by calling
// fn, then installs it via CAS, retrying against the latest snapshot on
// contention. Returns the snapshot that was displaced.
func (r *RCU[T]) Update(fn func(next *T)) T {
	for {
		origin := r.value.Load()
		next := *origin
		fn(&next)
		if r.value.CompareAndSwap(origin, &next) {
			return *origin
		}
	}
}
