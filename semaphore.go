// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import (
	"hash/fnv"

	"golang.org/x/sys/unix"
)

// Semaphore is a named counting semaphore usable for rendezvous between
// independent processes, such as a [SharedChannelWriter] and
// [SharedChannelReader] in different processes agreeing that the segment
// is ready.
//
// There is no cgo-free binding for POSIX sem_open in the standard library
// or golang.org/x/sys, so Semaphore is built on the System V semaphore
// syscalls instead (semget/semop, which x/sys/unix wraps directly, and
// semctl, which it leaves as a raw syscall since the ioctl-style union
// argument doesn't fit a single typed signature). The name is hashed into
// a System V key rather than used as a pathname, since semget keys are
// plain integers.
type Semaphore struct {
	id int
}

const (
	semSetVal = 16 // SETVAL, per <sys/sem.h>
	semRmID   = 0  // IPC_RMID, per <sys/ipc.h>
)

// CreateSemaphore creates a named semaphore with the given initial count.
func CreateSemaphore(name string, initial int) (*Semaphore, error) {
	key := semaphoreKey(name)
	id, err := unix.Semget(key, 1, unix.IPC_CREAT|unix.IPC_EXCL|0666)
	if err != nil {
		if err == unix.EEXIST {
			id, err = unix.Semget(key, 1, 0666)
		}
		if err != nil {
			return nil, &SemaphoreError{Name: name, Op: "semget", Err: err}
		}
	}

	if err := semctlSetVal(id, 0, initial); err != nil {
		return nil, &SemaphoreError{Name: name, Op: "semctl(setval)", Err: err}
	}

	return &Semaphore{id: id}, nil
}

// OpenSemaphore opens an existing named semaphore.
func OpenSemaphore(name string) (*Semaphore, error) {
	key := semaphoreKey(name)
	id, err := unix.Semget(key, 1, 0666)
	if err != nil {
		return nil, &SemaphoreError{Name: name, Op: "semget", Err: err}
	}
	return &Semaphore{id: id}, nil
}

// Post increments the semaphore's count.
func (s *Semaphore) Post() error {
	op := []unix.Sembuf{{SemNum: 0, SemOp: 1}}
	if err := unix.Semop(s.id, op, nil); err != nil {
		return &SemaphoreError{Op: "semop(post)", Err: err}
	}
	return nil
}

// Wait decrements the semaphore's count, blocking until it is positive.
func (s *Semaphore) Wait() error {
	op := []unix.Sembuf{{SemNum: 0, SemOp: -1}}
	if err := unix.Semop(s.id, op, nil); err != nil {
		return &SemaphoreError{Op: "semop(wait)", Err: err}
	}
	return nil
}

// Unlink removes the semaphore set. Removal is immediate, per System V
// semantics: processes blocked in Wait on the set are woken with an error
// (EIDRM), and later operations on it fail. There is no reference-counted
// deferred removal as with POSIX named semaphores.
func (s *Semaphore) Unlink() error {
	if err := semctlIpcRmID(s.id, 0); err != nil {
		return &SemaphoreError{Op: "semctl(rmid)", Err: err}
	}
	return nil
}

func semctlSetVal(id, num, val int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), uintptr(num), uintptr(semSetVal), uintptr(val), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func semctlIpcRmID(id, num int) error {
	_, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), uintptr(num), uintptr(semRmID), 0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

func semaphoreKey(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() & 0x7fffffff)
}

// SemaphoreError reports a failure in a System V semaphore operation.
type SemaphoreError struct {
	Name string
	Op   string
	Err  error
}

func (e *SemaphoreError) Error() string {
	if e.Name != "" {
		return "conq: semaphore " + e.Name + " " + e.Op + ": " + e.Err.Error()
	}
	return "conq: semaphore " + e.Op + ": " + e.Err.Error()
}

func (e *SemaphoreError) Unwrap() error { return e.Err }
