// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PerfCounter wraps a hardware CPU cycle counter opened via
// perf_event_open, for measuring ring throughput under contention without
// reaching for wall-clock time.
type PerfCounter struct {
	fd int
}

// OpenPerfCounter opens a disabled CPU-cycles counter for the calling
// thread. The counter starts disabled; call Start before the measured
// section and Stop after.
func OpenPerfCounter() (*PerfCounter, error) {
	attr := &unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_HARDWARE,
		Config: unix.PERF_COUNT_HW_CPU_CYCLES,
		Bits:   unix.PerfBitDisabled | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
		Size:   unix.PERF_ATTR_SIZE_VER1,
	}

	fd, err := unix.PerfEventOpen(attr, 0, -1, -1, 0)
	if err != nil {
		return nil, &PerfError{Op: "perf_event_open", Err: err}
	}
	return &PerfCounter{fd: fd}, nil
}

// Start resets and enables the counter.
func (p *PerfCounter) Start() error {
	if err := unix.IoctlSetInt(p.fd, unix.PERF_EVENT_IOC_RESET, 0); err != nil {
		return &PerfError{Op: "ioctl(reset)", Err: err}
	}
	if err := unix.IoctlSetInt(p.fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		return &PerfError{Op: "ioctl(enable)", Err: err}
	}
	return nil
}

// Stop disables the counter.
func (p *PerfCounter) Stop() error {
	if err := unix.IoctlSetInt(p.fd, unix.PERF_EVENT_IOC_DISABLE, 0); err != nil {
		return &PerfError{Op: "ioctl(disable)", Err: err}
	}
	return nil
}

// Read returns the current cycle count.
func (p *PerfCounter) Read() (uint64, error) {
	var buf [8]byte
	n, err := unix.Read(p.fd, buf[:])
	if err != nil {
		return 0, &PerfError{Op: "read", Err: err}
	}
	if n != 8 {
		return 0, &PerfError{Op: "read", Err: fmt.Errorf("short read: %d bytes", n)}
	}
	return uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
		uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56, nil
}

// Close closes the counter's file descriptor.
func (p *PerfCounter) Close() error {
	return unix.Close(p.fd)
}

// PerfError reports a failure opening or controlling a hardware performance
// counter. Most commonly surfaces as EACCES/EPERM under containerized or
// hardened kernels that restrict perf_event_open to privileged processes.
type PerfError struct {
	Op  string
	Err error
}

func (e *PerfError) Error() string {
	return "conq: perf " + e.Op + ": " + e.Err.Error()
}

func (e *PerfError) Unwrap() error { return e.Err }
