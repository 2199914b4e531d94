// Package ratelimit implements the three rate-limiting primitives from
// spec.md §4.1 (C2): token bucket, sliding window, and leaky bucket. Each
// exposes a pure tryAcquire(cost) contract plus an async variant that may
// suspend up to maxWait.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
)

// Decision is the result of a tryAcquire call.
type Decision struct {
	OK     bool
	WaitMs int64
}

// TokenBucket implements the classic token-bucket algorithm: capacity C,
// refill rate R/sec, starting full. It never overshoots capacity and is
// monotonic in time (spec.md invariant 5).
type TokenBucket struct {
	mu         sync.Mutex
	clock      clock.Clock
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a token bucket with the given capacity and
// refill rate (tokens/sec), starting full.
func NewTokenBucket(c clock.Clock, capacity, refillRatePerSec float64) *TokenBucket {
	if c == nil {
		c = clock.New()
	}
	return &TokenBucket{
		clock:      c,
		capacity:   capacity,
		refillRate: refillRatePerSec,
		tokens:     capacity,
		lastRefill: c.Now(),
	}
}

// refillLocked tops up tokens based on elapsed time, capped at capacity.
// Caller must hold mu.
func (b *TokenBucket) refillLocked() {
	now := b.clock.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// TryAcquire attempts to consume n tokens without blocking.
//
// cost > capacity is a permanent failure (edge policy, spec.md §4.1), not
// a wait: no refill amount will ever make the request satisfiable.
func (b *TokenBucket) TryAcquire(n float64) Decision {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.capacity {
		return Decision{OK: false, WaitMs: -1}
	}

	b.refillLocked()
	if b.tokens >= n {
		b.tokens -= n
		return Decision{OK: true}
	}

	deficit := n - b.tokens
	waitSec := deficit / b.refillRate
	return Decision{OK: false, WaitMs: int64(waitSec * 1000)}
}

// Acquire blocks (respecting ctx) until n tokens are available or maxWait
// elapses, returning whether acquisition ultimately succeeded.
func (b *TokenBucket) Acquire(ctx context.Context, n float64, maxWait time.Duration) bool {
	deadline := b.clock.Now().Add(maxWait)
	for {
		d := b.TryAcquire(n)
		if d.OK {
			return true
		}
		if d.WaitMs < 0 {
			return false
		}
		wait := time.Duration(d.WaitMs) * time.Millisecond
		if b.clock.Now().Add(wait).After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-b.clock.After(wait):
		}
	}
}

// Available returns the current token count after a lazy refill, for
// observability/testing.
func (b *TokenBucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

// Reset empties the bucket back to its initial (full) state.
func (b *TokenBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.capacity
	b.lastRefill = b.clock.Now()
}
