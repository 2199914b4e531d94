package ratelimit

import (
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
)

// LeakyBucket implements a FIFO admission queue of capacity Cq that leaks
// (drains) at L/sec (spec.md §4.1). Rather than tracking individual FIFO
// entries, it tracks a fluid "level" that represents outstanding queued
// cost, refreshed lazily on each call — equivalent to, but cheaper than, a
// literal timer-driven leaker, and exact for the tryAdd/estimated-wait
// contract the spec requires.
type LeakyBucket struct {
	mu        sync.Mutex
	clock     clock.Clock
	capacity  float64
	leakRate  float64 // units per second
	level     float64
	lastLeak  time.Time
}

// NewLeakyBucket creates a leaky bucket of the given queue capacity and
// leak rate (units/sec).
func NewLeakyBucket(c clock.Clock, capacity, leakRatePerSec float64) *LeakyBucket {
	if c == nil {
		c = clock.New()
	}
	return &LeakyBucket{
		clock:    c,
		capacity: capacity,
		leakRate: leakRatePerSec,
		lastLeak: c.Now(),
	}
}

// leakLocked drains the level based on elapsed time. Caller must hold mu.
func (b *LeakyBucket) leakLocked() {
	now := b.clock.Now()
	elapsed := now.Sub(b.lastLeak).Seconds()
	if elapsed <= 0 {
		return
	}
	b.level -= elapsed * b.leakRate
	if b.level < 0 {
		b.level = 0
	}
	b.lastLeak = now
}

// TryAdd admits an item of the given cost if the queue has room and its
// estimated dequeue time is within maxWait.
func (b *LeakyBucket) TryAdd(cost float64, maxWait time.Duration) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cost > b.capacity {
		return Decision{OK: false, WaitMs: -1}
	}

	b.leakLocked()

	if b.level+cost > b.capacity {
		return Decision{OK: false, WaitMs: -1}
	}

	estimatedWait := time.Duration(b.level / b.leakRate * float64(time.Second))
	if estimatedWait > maxWait {
		return Decision{OK: false, WaitMs: estimatedWait.Milliseconds()}
	}

	b.level += cost
	return Decision{OK: true, WaitMs: estimatedWait.Milliseconds()}
}

// Level returns the current queued level after a lazy leak.
func (b *LeakyBucket) Level() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leakLocked()
	return b.level
}

// Reset empties the bucket back to its initial (empty) state.
func (b *LeakyBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.level = 0
	b.lastLeak = b.clock.Now()
}
