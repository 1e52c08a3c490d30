// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package conq provides lock-free concurrency primitives: bounded FIFO
// rings, an unbounded queue, a stack, a read-copy-update cell, a byte
// stream codec and channel, and the OS bindings needed to carry that
// channel across a shared memory segment between two processes.
//
// # Rings
//
// Four bounded ring variants cover every producer/consumer arity:
//
//   - SPSC: Single-Producer Single-Consumer, wait-free both sides
//   - MPSC: Multi-Producer Single-Consumer
//   - SPMC: Single-Producer Multi-Consumer
//   - MPMC: Multi-Producer Multi-Consumer
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := conq.NewSPSC[Event](1024)
//	q := conq.NewMPMC[*Request](4096)
//
// Builder API auto-selects the ring from declared constraints:
//
//	q := conq.BuildSPSC[Event](conq.New(1024).SingleProducer().SingleConsumer())
//	q := conq.Build[Event](conq.New(1024))  // → MPMC
//
// # Basic Usage
//
// All four rings share the same [Queue] interface:
//
//	q := conq.NewMPMC[int](1024)
//
//	value := 42
//	err := q.Enqueue(&value)
//	if conq.IsWouldBlock(err) {
//	    // ring is full - handle backpressure
//	}
//
//	elem, err := q.Dequeue()
//	if conq.IsWouldBlock(err) {
//	    // ring is empty - try again later
//	}
//
// # Common Patterns
//
// Pipeline stage (SPSC):
//
//	q := conq.NewSPSC[Data](1024)
//
//	go func() { // producer
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for q.Enqueue(&data) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // consumer
//	    backoff := iox.Backoff{}
//	    for {
//	        data, err := q.Dequeue()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(data)
//	    }
//	}()
//
// Event aggregation (MPSC), work distribution (SPMC), and worker pools
// (MPMC) follow the same shape with the producer or consumer side
// multiplexed across goroutines.
//
// # Beyond Rings
//
// UnboundedSPSC never reports backpressure on Enqueue, at the cost of an
// allocation per element:
//
//	q := conq.NewUnboundedSPSC[LogLine]()
//
// Stack is a lock-free LIFO for cases that need last-in-first-out order
// instead of FIFO:
//
//	s := conq.NewStack[Token]()
//	s.Push(tok)
//	tok, err := s.Pop()
//
// RCU holds a value that many readers can load without synchronizing with
// each other, while a writer installs new snapshots built from the current
// one:
//
//	cfg := conq.NewRCU(initialConfig)
//	current := cfg.Read()
//	displaced := cfg.Update(func(next *Config) { next.Threshold++ })
//
// # Byte Streams
//
// [EncodeBucket] and [DecodeBucket] pack a byte stream into fixed-size
// 64-bit buckets, letting [Channel] carry arbitrary bytes over an SPSC
// ring of words instead of a ring of variable-length frames:
//
//	ch := conq.NewChannel(64)
//	w, r := ch.Writer(), ch.Reader()
//
//	go func() {
//	    w.Write([]byte("hello"))
//	}()
//
//	buf := make([]byte, 5)
//	n, _ := r.Read(buf)
//
// [SharedChannelWriter]/[SharedChannelReader] bind the same codec to a
// POSIX shared memory segment so two separate OS processes can exchange
// bytes without a kernel round trip per message; pair them with
// [Semaphore] for startup rendezvous and [Fork] to spawn the peer process.
//
// # Algorithm Notes
//
//	SPSC: Lamport ring buffer with cached indices, wait-free both sides.
//	MPSC: producers CAS-reserve a slot, then mark it ready; the single
//	      consumer checks the ready flag before reading.
//	SPMC: the single producer waits for the slot to read empty, then
//	      writes directly; consumers CAS-reserve a slot and spin on its
//	      full flag.
//	MPMC: both sides CAS-reserve their index and spin on the slot's full
//	      flag — producers for empty, consumers for full.
//
// None of the rings use a livelock-prevention threshold: contention is
// bounded by a producer or consumer retrying its own CAS, not by a shared
// counter that needs periodic reset.
//
// # Error Handling
//
// Rings return [ErrWouldBlock] when an operation cannot proceed. This
// error is sourced from [code.hybscloud.com/iox] for ecosystem
// consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Enqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !conq.IsWouldBlock(err) {
//	        return err // unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// # Capacity
//
// Ring capacity rounds up to the next power of 2:
//
//	q := conq.NewMPMC[int](3)     // actual capacity: 4
//	q := conq.NewMPMC[int](1000)  // actual capacity: 1024
//
// Minimum capacity is 2. Panics if capacity < 2.
//
// Length is intentionally not provided: an accurate count across
// producers and consumers needs cross-core synchronization the ring does
// not otherwise require. Track counts in application logic instead.
//
// # Thread Safety
//
//   - SPSC, UnboundedSPSC: one producer goroutine, one consumer goroutine
//   - MPSC: multiple producers, one consumer
//   - SPMC: one producer, multiple consumers
//   - MPMC, Stack, RCU: any number of goroutines on any side
//
// Violating a ring's access pattern (e.g. two producers on an SPSC)
// corrupts the ring; these are not checked at runtime.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established purely through acquire/release atomics on separate
// variables. These algorithms are correct under the memory model even
// where the detector reports a false positive; concurrent tests that would
// trip one are skipped when [RaceEnabled] is true, and the examples are
// excluded via //go:build !race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, [code.hybscloud.com/spin] for bounded spin-then-yield waits,
// and [golang.org/x/sys/unix] for the shared-memory and OS-collaborator
// bindings (mmap, System V semaphores, perf_event_open).
package conq
