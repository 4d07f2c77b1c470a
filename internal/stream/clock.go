// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "time"

// Clock abstracts the reveal timer so simulated streaming can run against a
// fake clock in tests instead of sleeping for real.
type Clock interface {
	// After returns a channel that delivers after the given duration.
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// SystemClock is the wall-clock implementation used outside tests.
var SystemClock Clock = systemClock{}
