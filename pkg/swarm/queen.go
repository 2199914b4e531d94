package swarm

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/consensus"
	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/id"
)

// QueenConfig tunes heartbeat/timeout detection.
type QueenConfig struct {
	WorkerTimeout time.Duration
}

func (c QueenConfig) withDefaults() QueenConfig {
	if c.WorkerTimeout <= 0 {
		c.WorkerTimeout = 30 * time.Second
	}
	return c
}

// Queen is the swarm's current leader: it tracks the worker table,
// issues directives, and tallies collective decisions. Grounded on the
// defensive-copy registry shape of pkg/scheduler's AgentRegistry,
// generalized to swarm workers.
type Queen struct {
	mu         sync.RWMutex
	clock      clock.Clock
	cfg        QueenConfig
	workers    map[string]*Worker
	dispatcher Dispatcher
	byz        *consensus.ByzantineRound // non-nil when this queen also chairs byzantine rounds
}

// NewQueen constructs a Queen. dispatcher may be nil until directives
// are actually issued (tests that only exercise worker bookkeeping
// don't need one).
func NewQueen(c clock.Clock, dispatcher Dispatcher, cfg QueenConfig) *Queen {
	return &Queen{
		clock:      c,
		cfg:        cfg.withDefaults(),
		workers:    make(map[string]*Worker),
		dispatcher: dispatcher,
	}
}

// RegisterWorker adds or replaces a worker in the table.
func (q *Queen) RegisterWorker(w *Worker) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *w
	q.workers[w.ID] = &cp
}

// Unregister removes a worker from the table.
func (q *Queen) Unregister(workerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.workers, workerID)
}

// Worker returns a defensive copy of the named worker.
func (q *Queen) Worker(workerID string) (Worker, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	w, ok := q.workers[workerID]
	if !ok {
		return Worker{}, false
	}
	return *w, true
}

// Workers returns defensive copies of every registered worker.
func (q *Queen) Workers() []Worker {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Worker, 0, len(q.workers))
	for _, w := range q.workers {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Heartbeat records liveness from workerID, clearing its offline flag.
func (q *Queen) Heartbeat(workerID string, healthScore, load float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if w, ok := q.workers[workerID]; ok {
		w.LastHeartbeat = q.clock.Now()
		w.HealthScore = healthScore
		w.Load = load
		w.Offline = false
	}
}

// CheckTimeouts marks workers offline if they haven't been heard from
// within cfg.WorkerTimeout, returning the set of worker IDs newly
// marked offline. Mirrors pkg/scheduler.Scheduler.CheckTimeouts.
func (q *Queen) CheckTimeouts() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock.Now()
	var timedOut []string
	for id, w := range q.workers {
		if w.Offline {
			continue
		}
		if now.Sub(w.LastHeartbeat) > q.cfg.WorkerTimeout {
			w.Offline = true
			timedOut = append(timedOut, id)
		}
	}
	sort.Strings(timedOut)
	return timedOut
}

// HealthyCapable returns the registered workers with the requested
// capability whose derived health is not offline or failed.
func (q *Queen) HealthyCapable(cap string) []Worker {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []Worker
	for _, w := range q.workers {
		if !w.HasCapability(cap) {
			continue
		}
		switch w.DeriveHealth() {
		case WorkerOffline, WorkerFailed:
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IssueDirective dispatches d to its targets via the queen's
// dispatcher and returns once quorum is reached or the deadline
// passes.
func (q *Queen) IssueDirective(ctx context.Context, d Directive) ([]Result, error) {
	if q.dispatcher == nil {
		return nil, errs.New(errs.KindInvalidArgument, "queen has no dispatcher configured")
	}
	if d.ID == "" {
		d.ID = id.NewDirectiveID()
	}
	if d.RequiredResponses <= 0 {
		d.RequiredResponses = RequiredResponses(len(d.Targets))
	}
	return IssueDirective(ctx, q.dispatcher, d)
}
