package backpressure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PoolConfig configures a WorkerPool.
type PoolConfig struct {
	WorkerCount int
	// IdleSleep is how long an idle worker sleeps between empty polls.
	IdleSleep time.Duration
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.IdleSleep <= 0 {
		c.IdleSleep = 50 * time.Millisecond
	}
	return c
}

// WorkerPool drains a Queue with a fixed number of worker goroutines,
// following the poll-sleep-backoff shape of pkg/queue/worker.go and the
// fixed-count, graceful-stop shape of pkg/queue/pool.go.
type WorkerPool struct {
	queue    *Queue
	cfg      PoolConfig
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewWorkerPool creates a WorkerPool draining queue.
func NewWorkerPool(q *Queue, cfg PoolConfig) *WorkerPool {
	return &WorkerPool{
		queue:  q,
		cfg:    cfg.withDefaults(),
		stopCh: make(chan struct{}),
	}
}

// Start spawns the worker goroutines. Safe to call once; a second call
// is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("backpressure pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	for i := 0; i < p.cfg.WorkerCount; i++ {
		id := fmt.Sprintf("worker-%d", i)
		p.wg.Add(1)
		go func(workerID string) {
			defer p.wg.Done()
			p.run(ctx, workerID)
		}(id)
	}
}

// Stop signals all workers to stop and waits for the in-flight item (if
// any) on each to finish.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *WorkerPool) run(ctx context.Context, workerID string) {
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		it, err := p.queue.Dequeue()
		if err != nil {
			// Circuit open: back off before polling again.
			p.sleep(p.cfg.IdleSleep)
			continue
		}
		if it == nil {
			p.sleep(p.cfg.IdleSleep)
			continue
		}

		itemCtx, cancel := context.WithDeadline(ctx, it.Deadline())
		execErr := it.Work(itemCtx)
		cancel()

		if execErr != nil {
			retried, backoff := p.queue.Fail(it, execErr)
			if retried {
				slog.Debug("backpressure item retrying", "worker", workerID, "attempt", it.Attempts, "backoff", backoff)
				p.sleep(backoff)
			} else {
				slog.Warn("backpressure item failed permanently", "worker", workerID, "attempts", it.Attempts, "err", execErr)
			}
			continue
		}
		p.queue.Succeed()
	}
}

func (p *WorkerPool) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-p.stopCh:
	}
}
