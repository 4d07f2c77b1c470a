// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"sync"
)

// =============================================================================
// CANCEL TOKEN
// =============================================================================

// cancelToken holds the cancel function for the in-flight generation with
// mutex protection, since Stop is called from the UI loop while the engine
// runs in its own goroutine.
//
// Must be held as a pointer so the mutex is never copied.
type cancelToken struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// set stores the cancel function for a freshly started generation.
func (t *cancelToken) set(fn context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = fn
}

// fire invokes the stored cancel function and clears it. Safe to call
// multiple times or with nothing stored.
func (t *cancelToken) fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// clear cancels any stored context and removes the function, so contexts
// never leak when a generation reaches a terminal state.
func (t *cancelToken) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
