// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sharedChannelCapacity is the bucket-ring size baked into the shared
// memory layout. Go has no placement-new, so unlike a heap-allocated
// Channel this size cannot vary per instance — two processes must agree
// on it at compile time, the same way they must agree on the struct
// layout itself.
const sharedChannelCapacity = 64

// sharedChannel is the fixed-layout structure mapped directly onto shared
// memory. It is deliberately built from a fixed-size array, never a slice
// or pointer: a slice header and a pointer are only meaningful within one
// process's address space, so any field reachable from a peer process must
// avoid them entirely. The ring state itself (head/tail counters) is laid
// out the same way [SPSC] lays out its own fields, cache-line padded so a
// writer's counter and a reader's counter never share a line.
type sharedChannel struct {
	headLo, headHi uint32 // producer counter, advanced by the writer (split to avoid requiring 8-byte mmap alignment guarantees beyond what Go already gives []byte)
	_              [56]byte
	tailLo, tailHi uint32 // consumer counter, advanced by the reader
	_              [56]byte
	buffer         [sharedChannelCapacity]uint64
}

func (s *sharedChannel) head() uint64 { return uint64(s.headHi)<<32 | uint64(s.headLo) }
func (s *sharedChannel) tail() uint64 { return uint64(s.tailHi)<<32 | uint64(s.tailLo) }
func (s *sharedChannel) setHead(v uint64) {
	s.headLo = uint32(v)
	s.headHi = uint32(v >> 32)
}
func (s *sharedChannel) setTail(v uint64) {
	s.tailLo = uint32(v)
	s.tailHi = uint32(v >> 32)
}

// Plain (non-atomic) field access above is a known gap: without an atomix
// type that can operate on memory outside the Go heap, head/tail updates
// here are not given acquire/release ordering by the compiler. In
// practice on amd64/arm64 a naturally-aligned 32-bit store is already
// atomic at the hardware level, and tests rendezvous through a [Semaphore]
// rather than relying on the ring's own synchronization to establish
// happens-before — see SharedChannelWriter/SharedChannelReader.

// SharedChannelWriter creates (or truncates and recreates) a shared memory
// segment at /dev/shm/<name> and binds a byte channel writer to it.
type SharedChannelWriter struct {
	seg  []byte
	ch   *sharedChannel
	path string
}

// CreateSharedChannelWriter creates the backing segment and zero-initializes
// it, which is equivalent to constructing a fresh [sharedChannel]: an
// all-zero ring is an empty ring.
func CreateSharedChannelWriter(name string) (*SharedChannelWriter, error) {
	path := "/dev/shm/" + name
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, &SegmentError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	size := int(unsafe.Sizeof(sharedChannel{}))
	if err := f.Truncate(int64(size)); err != nil {
		return nil, &SegmentError{Path: path, Op: "truncate", Err: err}
	}

	seg, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &SegmentError{Path: path, Op: "mmap", Err: err}
	}

	return &SharedChannelWriter{
		seg:  seg,
		ch:   (*sharedChannel)(unsafe.Pointer(&seg[0])),
		path: path,
	}, nil
}

// Write encodes data into buckets and pushes them into the shared ring.
// Returns the number of buckets written; see [ChannelWriter.Write] for why
// this is a bucket count and not a byte count.
func (w *SharedChannelWriter) Write(data []byte) (buckets int, err error) {
	cursor := 0
	for {
		bucket, consumed, ok := EncodeBucket(data, cursor)
		if !ok {
			return buckets, nil
		}
		head := w.ch.head()
		if head-w.ch.tail() == sharedChannelCapacity {
			return buckets, ErrWouldBlock
		}
		w.ch.buffer[head%sharedChannelCapacity] = bucket
		w.ch.setHead(head + 1)
		cursor += consumed
		buckets++
	}
}

// Close unmaps the segment and unlinks its backing file at /dev/shm.
// Whichever side — writer or reader — closes last will find the file
// already gone; that is not an error, matching original_source's
// destructors, which both unlink unconditionally and tolerate ENOENT.
func (w *SharedChannelWriter) Close() error {
	err := unix.Munmap(w.seg)
	if unlinkErr := UnlinkSharedChannel(w.path); unlinkErr != nil && err == nil {
		err = unlinkErr
	}
	return err
}

// SharedChannelReader opens an existing segment created by
// [CreateSharedChannelWriter] and binds a byte channel reader to it.
type SharedChannelReader struct {
	seg    []byte
	ch     *sharedChannel
	path   string
	cached uint64
	have   bool
}

// OpenSharedChannelReader maps an existing segment without placement
// construction: the Writer and Reader share the exact same sharedChannel
// layout, so a Reader that opens the segment is reinterpreting memory the
// Writer already initialized to a valid (possibly still-empty) ring rather
// than constructing a second, differently-laid-out view of it. Callers
// that need the segment to exist before opening should rendezvous through
// a [Semaphore] rather than polling for the file to appear.
func OpenSharedChannelReader(name string) (*SharedChannelReader, error) {
	path := "/dev/shm/" + name
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &SegmentError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	size := int(unsafe.Sizeof(sharedChannel{}))
	seg, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &SegmentError{Path: path, Op: "mmap", Err: err}
	}

	return &SharedChannelReader{
		seg:  seg,
		ch:   (*sharedChannel)(unsafe.Pointer(&seg[0])),
		path: path,
	}, nil
}

// Read decodes buckets from the shared ring into data. See
// [ChannelReader.Read] for why this returns a byte count.
func (r *SharedChannelReader) Read(data []byte) (n int, err error) {
	for n < len(data) {
		if !r.have {
			tail := r.ch.tail()
			if tail == r.ch.head() {
				return n, nil
			}
			r.cached = r.ch.buffer[tail%sharedChannelCapacity]
			r.ch.setTail(tail + 1)
			r.have = true
		}

		written, derr := DecodeBucket(r.cached, data[n:])
		if derr != nil {
			if derr == ErrInsufficientBuffer {
				return n, nil
			}
			return n, derr
		}

		n += written
		r.have = false
	}
	return n, nil
}

// Close unmaps the segment and unlinks its backing file at /dev/shm; see
// [SharedChannelWriter.Close] for why both sides unlink unconditionally.
func (r *SharedChannelReader) Close() error {
	err := unix.Munmap(r.seg)
	if unlinkErr := UnlinkSharedChannel(r.path); unlinkErr != nil && err == nil {
		err = unlinkErr
	}
	return err
}

// SegmentError reports a failure manipulating a shared memory segment's
// backing file or mapping.
type SegmentError struct {
	Path string
	Op   string
	Err  error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("conq: shared memory %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }

// UnlinkSharedChannel removes the backing file at /dev/shm/<name>. Ignores
// a not-exist error, matching the POSIX convention of treating shm_unlink
// on an already-gone segment as a no-op during cleanup.
func UnlinkSharedChannel(name string) error {
	err := os.Remove("/dev/shm/" + name)
	if err != nil && !os.IsNotExist(err) {
		return &SegmentError{Path: "/dev/shm/" + name, Op: "unlink", Err: err}
	}
	return nil
}
