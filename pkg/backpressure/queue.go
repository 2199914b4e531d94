// Package backpressure implements the priority queue with per-item
// timeout, retry, and circuit breaker described in spec.md §4.3 (C4).
package backpressure

import (
	"container/heap"
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/errs"
)

// Priority levels, in scheduling order (spec.md: CRITICAL first).
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// Work is the closure an Item wraps. It returns an error; a non-nil
// error is treated as a failure for retry/circuit-breaker purposes.
type Work func(ctx context.Context) error

// RetryPolicy configures exponential backoff with full jitter.
type RetryPolicy struct {
	MaxRetries        int
	InitialBackoffMs  int64
	BackoffMultiplier float64
}

// Item is one unit of work in the queue.
type Item struct {
	Priority    Priority
	EnqueuedAt  time.Time
	TimeoutMs   int64
	Attempts    int
	Retry       RetryPolicy
	Work        Work

	seq int64 // FIFO tie-break within the same priority
}

// Deadline returns the absolute time at which this item expires.
func (it *Item) Deadline() time.Time {
	return it.EnqueuedAt.Add(time.Duration(it.TimeoutMs) * time.Millisecond)
}

// Stats exposes the counters named in spec.md §4.3.
type Stats struct {
	Queued    int64
	Processed int64
	Retried   int64
	Rejected  int64
	Depths    map[Priority]int
	Circuit   State
}

// itemHeap is a container/heap.Interface implementing strict priority
// ordering across levels and FIFO within a level.
type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(*Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Queue is the bounded priority queue of closures described in spec.md
// §4.3.
type Queue struct {
	mu       sync.Mutex
	clock    clock.Clock
	maxSize  int
	heap     itemHeap
	nextSeq  int64
	breaker  *CircuitBreaker

	queued, processed, retried, rejected int64
}

// Config configures a Queue.
type Config struct {
	MaxSize        int
	CircuitBreaker BreakerConfig
}

// NewQueue creates a Queue.
func NewQueue(c clock.Clock, cfg Config) *Queue {
	if c == nil {
		c = clock.New()
	}
	return &Queue{
		clock:   c,
		maxSize: cfg.MaxSize,
		breaker: NewCircuitBreaker(c, cfg.CircuitBreaker),
	}
}

// Enqueue adds an item to the queue, rejecting if it is full.
func (q *Queue) Enqueue(it *Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxSize > 0 && len(q.heap) >= q.maxSize {
		q.rejected++
		return errs.New(errs.KindQueueFull, "queue at capacity")
	}
	if it.EnqueuedAt.IsZero() {
		it.EnqueuedAt = q.clock.Now()
	}
	it.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.heap, it)
	q.queued++
	return nil
}

// Dequeue pops the highest-priority ready item, enforcing the circuit
// breaker and deadline/retry checks from spec.md §4.3.
//
// It returns (item, nil) on a normal pop; (nil, CircuitOpen) if the
// breaker rejects dequeues; (nil, nil) if the queue is empty.
func (q *Queue) Dequeue() (*Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return nil, nil
	}
	if !q.breaker.allowLocked() {
		return nil, errs.New(errs.KindCircuitOpen, "circuit breaker open")
	}
	it := heap.Pop(&q.heap).(*Item)
	return it, nil
}

// Fail marks an item's execution as failed: applies the retry schedule
// (re-enqueuing at the original priority after backoff elapses) or
// permanently fails it, and records the outcome against the circuit
// breaker.
//
// Returns (true, backoff) if the item was re-enqueued for retry; the
// caller (the drain loop) is expected to wait backoff before the item
// becomes eligible for dequeue again, matching pkg/queue/worker.go's
// poll-sleep-backoff pattern.
func (q *Queue) Fail(it *Item, execErr error) (retried bool, backoff time.Duration) {
	q.mu.Lock()
	q.breaker.recordFailureLocked()
	q.mu.Unlock()

	it.Attempts++
	now := q.clock.Now()

	if now.After(it.Deadline()) || it.Attempts > it.Retry.MaxRetries {
		q.mu.Lock()
		q.rejected++
		q.mu.Unlock()
		return false, 0
	}

	backoff = retryBackoff(it.Retry, it.Attempts)

	q.mu.Lock()
	defer q.mu.Unlock()
	it.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.heap, it)
	q.retried++
	return true, backoff
}

// Succeed records a successful dequeue's outcome against the circuit
// breaker and processed counter.
func (q *Queue) Succeed() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.breaker.recordSuccessLocked()
	q.processed++
}

// retryBackoff computes initialBackoff * multiplier^(attempt-1) with
// full jitter (spec.md §4.3).
func retryBackoff(p RetryPolicy, attempt int) time.Duration {
	base := float64(p.InitialBackoffMs)
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 2
	}
	for i := 1; i < attempt; i++ {
		base *= mult
	}
	jittered := rand.Float64() * base
	return time.Duration(jittered) * time.Millisecond
}

// Stats returns a snapshot of the queue's counters and circuit state.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	depths := make(map[Priority]int)
	for _, it := range q.heap {
		depths[it.Priority]++
	}
	return Stats{
		Queued:    q.queued,
		Processed: q.processed,
		Retried:   q.retried,
		Rejected:  q.rejected,
		Depths:    depths,
		Circuit:   q.breaker.State(),
	}
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
