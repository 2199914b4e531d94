package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmruntime/core/pkg/clock"
)

func TestLeakyBucket_BasicAdmission(t *testing.T) {
	c := clock.NewManual(time.Now())
	b := NewLeakyBucket(c, 5, 5) // capacity 5, leak 5/sec

	for i := 0; i < 5; i++ {
		d := b.TryAdd(1, time.Second)
		require.True(t, d.OK, "add %d should succeed", i)
	}
	d := b.TryAdd(1, time.Second)
	require.False(t, d.OK)
}

func TestLeakyBucket_LeaksOverTime(t *testing.T) {
	c := clock.NewManual(time.Now())
	b := NewLeakyBucket(c, 5, 5)
	for i := 0; i < 5; i++ {
		b.TryAdd(1, time.Second)
	}
	c.Advance(time.Second)
	assert.InDelta(t, 0, b.Level(), 0.01)
	d := b.TryAdd(1, time.Second)
	require.True(t, d.OK)
}

func TestLeakyBucket_MaxWaitRejection(t *testing.T) {
	c := clock.NewManual(time.Now())
	b := NewLeakyBucket(c, 100, 1) // slow leak
	for i := 0; i < 50; i++ {
		require.True(t, b.TryAdd(1, time.Hour).OK)
	}
	// Queue now holds 50 units; at 1/sec that's a 50s estimated wait.
	d := b.TryAdd(1, time.Second)
	require.False(t, d.OK)
	assert.Greater(t, d.WaitMs, int64(0))
}

func TestLeakyBucket_CostExceedsCapacityIsPermanentFail(t *testing.T) {
	c := clock.NewManual(time.Now())
	b := NewLeakyBucket(c, 5, 1)
	d := b.TryAdd(6, time.Hour)
	require.False(t, d.OK)
	assert.Equal(t, int64(-1), d.WaitMs)
}

func TestLeakyBucket_Reset(t *testing.T) {
	c := clock.NewManual(time.Now())
	b := NewLeakyBucket(c, 5, 1)
	b.TryAdd(5, time.Hour)
	require.False(t, b.TryAdd(1, 0).OK)
	b.Reset()
	require.True(t, b.TryAdd(1, time.Hour).OK)
}
