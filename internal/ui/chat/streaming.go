// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file implements render throttling for smooth, flicker-free output
// while a response streams in. The engine notifies the program on every
// message write, which during a simulated reveal can be hundreds of times a
// second; the throttle coalesces those notifications so the transcript
// redraws at a capped frame rate.
package chat

import (
	"sync"
	"time"
)

// =============================================================================
// RENDER THROTTLE
// =============================================================================

// RenderThrottle coalesces store-change notifications into at most maxFPS
// redraws per second. Notifications mark the throttle dirty; the 30fps tick
// consumes the dirty flag when enough time has passed.
//
// Thread-safety: notifications arrive from the engine goroutine while the
// tick runs on the Bubble Tea loop, so all state is mutex-guarded.
type RenderThrottle struct {
	mu         sync.Mutex
	dirty      bool
	lastRender time.Time
	minGap     time.Duration
}

// NewRenderThrottle creates a throttle capped at maxFPS redraws per second.
func NewRenderThrottle(maxFPS int) *RenderThrottle {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 30
	}
	return &RenderThrottle{
		minGap: time.Duration(1000/maxFPS) * time.Millisecond,
	}
}

// Mark records that the store changed and a redraw is pending.
func (rt *RenderThrottle) Mark() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.dirty = true
}

// Consume reports whether a redraw should happen now. It returns true only
// when a change is pending and the minimum gap since the last redraw has
// elapsed, and resets the dirty flag when it does.
func (rt *RenderThrottle) Consume() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.dirty {
		return false
	}
	if time.Since(rt.lastRender) < rt.minGap {
		return false
	}

	rt.dirty = false
	rt.lastRender = time.Now()
	return true
}

// Force consumes any pending change regardless of timing. Used when a
// generation finishes so the final content always renders.
func (rt *RenderThrottle) Force() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	dirty := rt.dirty
	rt.dirty = false
	rt.lastRender = time.Now()
	return dirty
}

// Pending reports whether a redraw is waiting.
func (rt *RenderThrottle) Pending() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.dirty
}
