// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package affinity

import (
	"fmt"
	"runtime"
)

// Pin is unsupported outside Linux; the orchestrator falls back to running
// unpinned when this returns an error.
func Pin(core int) error {
	return fmt.Errorf("affinity: core pinning is not supported on %s", runtime.GOOS)
}

// Unpin is a no-op on platforms where Pin never succeeds.
func Unpin() {}

// NumCPU reports the number of logical cores available for pinning.
func NumCPU() int {
	return runtime.NumCPU()
}
