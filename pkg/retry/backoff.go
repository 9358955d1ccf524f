// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// nextDelay computes min(initial_interval * multiplier^retries, max_interval)
// (§4.4 step 2) by stepping a zero-jitter cenkalti/backoff.ExponentialBackOff
// forward `retries+1` times and taking its last interval. Using the library
// keeps the growth/cap arithmetic (and its edge cases around overflow) in
// one place shared with anything else in this codebase that backs off.
func nextDelay(cfg Config, retries uint64) time.Duration {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialInterval
	eb.MaxInterval = cfg.MaxInterval
	eb.Multiplier = cfg.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0 // unbounded here; the deadline check is done separately
	eb.Reset()

	var last time.Duration
	for i := uint64(0); i <= retries; i++ {
		last = eb.NextBackOff()
	}
	return last
}
