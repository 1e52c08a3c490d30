// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

import (
	"fmt"
	"os"
	"os/exec"

	"code.hybscloud.com/atomix"
)

// fenceWord is a scratch cell used only to issue a full fence in prepare;
// it carries no state of its own.
var fenceWord atomix.Uint64

// forkCallbacks holds functions registered via [RegisterForkCallback],
// looked up by name when a re-exec'd child starts.
var forkCallbacks = map[string]func(){}

const forkCallbackEnv = "CONQ_FORK_CALLBACK"

// RegisterForkCallback associates a name with a function a [Process] child
// should run. Call this from an init function or before any [Fork] call
// naming it.
func RegisterForkCallback(name string, fn func()) {
	forkCallbacks[name] = fn
}

// RunForkCallbackIfChild checks whether the current process was launched
// by [Fork] to run a registered callback and, if so, runs it and exits the
// process with status 0 once it returns. Callbacks have no return value,
// so the exit status does not come from the callback; a callback that
// calls os.Exit itself ends the child with that status instead. Call this
// once near the top of main, before any other startup work — a real
// fork() copies the whole address space, including the state of goroutines
// already running, but only the forking thread keeps running in the child,
// which is exactly what makes raw fork() unsafe to use from a Go program;
// re-executing the
// binary from a clean main avoids carrying over in-flight goroutines,
// open file descriptors assumed closed-on-exec, and GC/scheduler state
// instead.
func RunForkCallbackIfChild() {
	name := os.Getenv(forkCallbackEnv)
	if name == "" {
		return
	}
	fn, ok := forkCallbacks[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "conq: unknown fork callback %q\n", name)
		os.Exit(1)
	}
	fn()
	os.Exit(0)
}

// Process is a handle to a child process started by [Fork].
type Process struct {
	cmd *exec.Cmd
}

// prepare flushes standard output and error and issues a full fence before
// spawning a child, mirroring original_source's prepare() (fflush(stdout),
// fflush(stderr), atomic_thread_fence(seq_cst) ahead of ::fork()). A
// goroutine can be buffering output through a bufio.Writer the child's
// inherited fd knows nothing about, and the fork boundary is exactly where
// that buffered output needs to have already reached the fd, same reason
// the original flushes libc's stdio buffers before forking. Sync can
// legitimately fail on a non-regular file (a pipe, a terminal); that is not
// a reason to abort starting the child.
func prepare() {
	_ = os.Stdout.Sync()
	_ = os.Stderr.Sync()
	// atomix has no standalone Fence primitive; a successful AcqRel CAS on
	// a scratch word is the package's established full-barrier substitute
	// (the same acquire-release discipline the rings already rely on).
	fenceWord.CompareAndSwapAcqRel(fenceWord.LoadRelaxed(), 0)
}

// Fork starts a new process that will invoke the named, previously
// registered callback and then exit. The child is the current executable
// re-invoked with an environment variable identifying the callback,
// standing in for a true fork+exec-in-child since Go's runtime does not
// support forking a multi-goroutine process safely.
func Fork(name string) (*Process, error) {
	if _, ok := forkCallbacks[name]; !ok {
		return nil, &ForkError{Name: name, Err: fmt.Errorf("no callback registered")}
	}

	prepare()

	exe, err := os.Executable()
	if err != nil {
		return nil, &ForkError{Name: name, Err: err}
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), forkCallbackEnv+"="+name)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Start(); err != nil {
		return nil, &ForkError{Name: name, Err: err}
	}

	return &Process{cmd: cmd}, nil
}

// Wait blocks until the child exits and returns its exit code.
func (p *Process) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, &ForkError{Err: err}
}

// ForkError reports a failure starting or registering a forked process.
type ForkError struct {
	Name string
	Err  error
}

func (e *ForkError) Error() string {
	if e.Name != "" {
		return "conq: fork " + e.Name + ": " + e.Err.Error()
	}
	return "conq: fork: " + e.Err.Error()
}

func (e *ForkError) Unwrap() error { return e.Err }
