package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmruntime/core/pkg/clock"
)

// S6 — Sliding window cap.
func TestSlidingWindow_S6(t *testing.T) {
	c := clock.NewManual(time.Now())
	w := NewSlidingWindow(c, 5, 100*time.Millisecond, 10)

	for i := 0; i < 5; i++ {
		d := w.TryAcquire(1)
		require.True(t, d.OK, "acquire %d should succeed", i)
	}
	d := w.TryAcquire(1)
	require.False(t, d.OK)

	c.Advance(110 * time.Millisecond)
	for i := 0; i < 5; i++ {
		d := w.TryAcquire(1)
		require.True(t, d.OK, "post-window acquire %d should succeed", i)
	}
}

func TestSlidingWindow_NeverExceedsMaxInAnyWindow(t *testing.T) {
	c := clock.NewManual(time.Now())
	w := NewSlidingWindow(c, 3, 30*time.Millisecond, 3)

	admitted := 0
	for i := 0; i < 20; i++ {
		if w.TryAcquire(1).OK {
			admitted++
		}
		assert.LessOrEqual(t, w.Count(), 3)
		c.Advance(5 * time.Millisecond)
	}
}

func TestSlidingWindow_FixedWindowMode(t *testing.T) {
	c := clock.NewManual(time.Now())
	w := NewSlidingWindow(c, 2, 50*time.Millisecond, 1)

	require.True(t, w.TryAcquire(1).OK)
	require.True(t, w.TryAcquire(1).OK)
	require.False(t, w.TryAcquire(1).OK)

	c.Advance(60 * time.Millisecond)
	require.True(t, w.TryAcquire(1).OK)
}

func TestSlidingWindow_CostExceedsMaxIsPermanentFail(t *testing.T) {
	c := clock.NewManual(time.Now())
	w := NewSlidingWindow(c, 3, 50*time.Millisecond, 5)
	d := w.TryAcquire(4)
	require.False(t, d.OK)
	assert.Equal(t, int64(-1), d.WaitMs)
}

func TestSlidingWindow_Reset(t *testing.T) {
	c := clock.NewManual(time.Now())
	w := NewSlidingWindow(c, 2, 50*time.Millisecond, 2)
	w.TryAcquire(2)
	require.False(t, w.TryAcquire(1).OK)
	w.Reset()
	require.True(t, w.TryAcquire(1).OK)
}
