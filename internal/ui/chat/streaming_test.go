// Copyright (c) 2024-2025 Preetam
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderThrottle_ConsumeRequiresMark(t *testing.T) {
	rt := NewRenderThrottle(30)
	assert.False(t, rt.Consume())

	rt.Mark()
	assert.True(t, rt.Pending())
	assert.True(t, rt.Consume())
	assert.False(t, rt.Pending())

	// Consumed; nothing pending until the next mark.
	assert.False(t, rt.Consume())
}

func TestRenderThrottle_CapsFrameRate(t *testing.T) {
	rt := NewRenderThrottle(30)

	rt.Mark()
	assert.True(t, rt.Consume())

	// A mark immediately after a redraw must wait out the frame gap.
	rt.Mark()
	assert.False(t, rt.Consume())

	time.Sleep(40 * time.Millisecond)
	assert.True(t, rt.Consume())
}

func TestRenderThrottle_ForceIgnoresTiming(t *testing.T) {
	rt := NewRenderThrottle(30)

	rt.Mark()
	assert.True(t, rt.Consume())

	rt.Mark()
	assert.True(t, rt.Force())
	assert.False(t, rt.Force())
}

func TestNewRenderThrottle_BoundsFPS(t *testing.T) {
	// Out-of-range values fall back to 30fps rather than panicking or
	// producing a zero interval.
	for _, fps := range []int{0, -5, 1000} {
		rt := NewRenderThrottle(fps)
		assert.Equal(t, time.Duration(1000/30)*time.Millisecond, rt.minGap)
	}
}
