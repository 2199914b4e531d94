package ratelimit

import (
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
)

// SlidingWindow implements maxRequests-per-windowMs admission, subdivided
// into B sub-buckets that roll forward as time passes (spec.md §4.1).
// With buckets=1 it behaves as a fixed window that resets on the window
// boundary.
type SlidingWindow struct {
	mu           sync.Mutex
	clock        clock.Clock
	maxRequests  int
	window       time.Duration
	bucketWidth  time.Duration
	buckets      []int
	bucketStart  time.Time // start time of buckets[0]
	numBuckets   int
}

// NewSlidingWindow creates a sliding window limiter of maxRequests per
// window, subdivided into numBuckets sub-buckets (numBuckets=1 is a fixed
// window).
func NewSlidingWindow(c clock.Clock, maxRequests int, window time.Duration, numBuckets int) *SlidingWindow {
	if c == nil {
		c = clock.New()
	}
	if numBuckets < 1 {
		numBuckets = 1
	}
	return &SlidingWindow{
		clock:       c,
		maxRequests: maxRequests,
		window:      window,
		bucketWidth: window / time.Duration(numBuckets),
		buckets:     make([]int, numBuckets),
		bucketStart: c.Now(),
		numBuckets:  numBuckets,
	}
}

// rollLocked advances buckets so that buckets[0] covers the sub-window
// containing now, discarding (zeroing) any buckets older than the window.
// Caller must hold mu.
func (w *SlidingWindow) rollLocked(now time.Time) {
	if w.bucketWidth <= 0 {
		return
	}
	elapsed := now.Sub(w.bucketStart)
	shift := int(elapsed / w.bucketWidth)
	if shift <= 0 {
		return
	}
	if shift >= w.numBuckets {
		for i := range w.buckets {
			w.buckets[i] = 0
		}
		w.bucketStart = now
		return
	}
	// Rotate left by `shift`, zeroing the freed tail slots.
	w.buckets = append(w.buckets[shift:], w.buckets[:shift]...)
	for i := w.numBuckets - shift; i < w.numBuckets; i++ {
		w.buckets[i] = 0
	}
	w.bucketStart = w.bucketStart.Add(time.Duration(shift) * w.bucketWidth)
}

func (w *SlidingWindow) sumLocked() int {
	total := 0
	for _, c := range w.buckets {
		total += c
	}
	return total
}

// TryAcquire admits n requests (n is usually 1, but batched counts are
// supported) if doing so keeps the window at or under maxRequests.
func (w *SlidingWindow) TryAcquire(n int) Decision {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n > w.maxRequests {
		return Decision{OK: false, WaitMs: -1}
	}

	now := w.clock.Now()
	w.rollLocked(now)

	if w.sumLocked()+n <= w.maxRequests {
		w.buckets[w.numBuckets-1] += n
		return Decision{OK: true}
	}

	// Earliest time at which the oldest bucket will roll out, freeing
	// enough headroom. Approximate via the remaining width of bucket 0.
	remaining := w.bucketWidth - now.Sub(w.bucketStart)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{OK: false, WaitMs: remaining.Milliseconds()}
}

// Count returns the number of requests currently counted within the
// window, after rolling forward.
func (w *SlidingWindow) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollLocked(w.clock.Now())
	return w.sumLocked()
}

// Reset empties the window back to its initial (empty) state.
func (w *SlidingWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.buckets {
		w.buckets[i] = 0
	}
	w.bucketStart = w.clock.Now()
}
