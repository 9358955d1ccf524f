// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

// Package affinity pins the calling goroutine's OS thread to a single CPU
// core, used by the pipeline orchestrator to run each thread-per-core
// pipeline instance on its own core (§5 "Thread-safety duality": the
// non-Send scheduler variant assumes exclusive use of its core).
package affinity

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Pin locks the calling goroutine to its current OS thread and restricts
// that thread to run on the given core. The caller must not unlock the OS
// thread for as long as the pinning should hold; runtime.UnlockOSThread
// (or the goroutine exiting) releases it.
//
// Pin must be called from the goroutine that will do the pinned work —
// runtime.LockOSThread affects only the calling goroutine.
func Pin(core int) error {
	if core < 0 {
		return fmt.Errorf("affinity: core must be >= 0, got %d", core)
	}
	runtime.LockOSThread()

	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("affinity: pin to core %d: %w", core, err)
	}
	return nil
}

// Unpin releases a prior Pin call's OS-thread lock. It does not attempt to
// restore the thread's original affinity mask.
func Unpin() {
	runtime.UnlockOSThread()
}

// NumCPU reports the number of logical cores available for pinning.
func NumCPU() int {
	return runtime.NumCPU()
}
