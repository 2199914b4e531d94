package backpressure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmruntime/core/pkg/clock"
)

func newTestQueue(t *testing.T) (*Queue, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(time.Now())
	q := NewQueue(c, Config{MaxSize: 10, CircuitBreaker: BreakerConfig{FailureThreshold: 3, OpenDuration: time.Second}})
	return q, c
}

// S7 groundwork: strict priority ordering, FIFO within a level.
func TestQueue_PriorityOrdering(t *testing.T) {
	q, _ := newTestQueue(t)
	require.NoError(t, q.Enqueue(&Item{Priority: PriorityLow, TimeoutMs: 10000}))
	require.NoError(t, q.Enqueue(&Item{Priority: PriorityCritical, TimeoutMs: 10000}))
	require.NoError(t, q.Enqueue(&Item{Priority: PriorityNormal, TimeoutMs: 10000}))
	require.NoError(t, q.Enqueue(&Item{Priority: PriorityCritical, TimeoutMs: 10000}))

	first, err := q.Dequeue()
	require.NoError(t, err)
	second, err := q.Dequeue()
	require.NoError(t, err)

	assert.Equal(t, PriorityCritical, first.Priority)
	assert.Equal(t, PriorityCritical, second.Priority)
	assert.Less(t, first.seq, second.seq)

	third, _ := q.Dequeue()
	assert.Equal(t, PriorityNormal, third.Priority)
	fourth, _ := q.Dequeue()
	assert.Equal(t, PriorityLow, fourth.Priority)
}

func TestQueue_RejectsWhenFull(t *testing.T) {
	c := clock.NewManual(time.Now())
	q := NewQueue(c, Config{MaxSize: 1})
	require.NoError(t, q.Enqueue(&Item{TimeoutMs: 1000}))
	err := q.Enqueue(&Item{TimeoutMs: 1000})
	require.Error(t, err)
	assert.Equal(t, int64(1), q.Stats().Rejected)
}

func TestQueue_FailRetriesUntilMaxRetriesThenDrops(t *testing.T) {
	q, c := newTestQueue(t)
	_ = c
	it := &Item{Priority: PriorityNormal, TimeoutMs: 60000, Retry: RetryPolicy{MaxRetries: 2, InitialBackoffMs: 10, BackoffMultiplier: 2}}
	require.NoError(t, q.Enqueue(it))

	popped, _ := q.Dequeue()
	retried, _ := q.Fail(popped, errors.New("boom"))
	assert.True(t, retried)
	assert.Equal(t, 1, popped.Attempts)

	popped2, _ := q.Dequeue()
	retried2, _ := q.Fail(popped2, errors.New("boom"))
	assert.True(t, retried2)

	popped3, _ := q.Dequeue()
	retried3, _ := q.Fail(popped3, errors.New("boom"))
	assert.False(t, retried3)
	assert.Equal(t, int64(1), q.Stats().Rejected)
}

func TestQueue_FailDropsPastDeadline(t *testing.T) {
	q, c := newTestQueue(t)
	it := &Item{Priority: PriorityNormal, TimeoutMs: 50, Retry: RetryPolicy{MaxRetries: 5, InitialBackoffMs: 10, BackoffMultiplier: 2}}
	require.NoError(t, q.Enqueue(it))
	popped, _ := q.Dequeue()

	c.Advance(100 * time.Millisecond)
	retried, _ := q.Fail(popped, errors.New("boom"))
	assert.False(t, retried)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	c := clock.NewManual(time.Now())
	b := NewCircuitBreaker(c, BreakerConfig{FailureThreshold: 2, OpenDuration: time.Second})

	assert.True(t, b.allowLocked())
	b.recordFailureLocked()
	assert.Equal(t, StateClosed, b.State())
	b.recordFailureLocked()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.allowLocked())
}

func TestCircuitBreaker_HalfOpenThenCloses(t *testing.T) {
	c := clock.NewManual(time.Now())
	b := NewCircuitBreaker(c, BreakerConfig{FailureThreshold: 1, OpenDuration: time.Second, HalfOpenSuccesses: 1})

	b.recordFailureLocked()
	require.Equal(t, StateOpen, b.State())

	c.Advance(2 * time.Second)
	assert.True(t, b.allowLocked())
	assert.Equal(t, StateHalfOpen, b.State())

	b.recordSuccessLocked()
	assert.Equal(t, StateClosed, b.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	c := clock.NewManual(time.Now())
	b := NewCircuitBreaker(c, BreakerConfig{FailureThreshold: 1, OpenDuration: time.Second})

	b.recordFailureLocked()
	c.Advance(2 * time.Second)
	require.True(t, b.allowLocked())
	require.Equal(t, StateHalfOpen, b.State())

	b.recordFailureLocked()
	assert.Equal(t, StateOpen, b.State())
}

func TestWorkerPool_ProcessesEnqueuedItems(t *testing.T) {
	c := clock.NewManual(time.Now())
	q := NewQueue(c, Config{MaxSize: 10})
	pool := NewWorkerPool(q, PoolConfig{WorkerCount: 2, IdleSleep: time.Millisecond})

	done := make(chan struct{})
	require.NoError(t, q.Enqueue(&Item{
		Priority:  PriorityNormal,
		TimeoutMs: 5000,
		Work: func(ctx context.Context) error {
			close(done)
			return nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	defer func() {
		cancel()
		pool.Stop()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("item was never processed")
	}
}
