package swarm

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/id"
)

// DirectiveType is the kind of directive the queen issues.
type DirectiveType string

const (
	DirectiveTask         DirectiveType = "task"
	DirectiveQuery        DirectiveType = "query"
	DirectiveCoordination DirectiveType = "coordination"
	DirectiveConsensus    DirectiveType = "consensus"
)

// DirectiveStatus tracks a directive's lifecycle.
type DirectiveStatus string

const (
	DirectivePending   DirectiveStatus = "pending"
	DirectiveCompleted DirectiveStatus = "completed"
	DirectiveAborted   DirectiveStatus = "aborted"
)

// Directive is issued by the current leader to a set of worker targets
// (spec.md §3). At-most-once per ID: the queen mints a fresh ID per
// issuance and never reissues it.
type Directive struct {
	ID                id.DirectiveID
	Type              DirectiveType
	Targets           []string
	Payload           any
	Priority          int
	RequiredResponses int
	Deadline          time.Time
	Status            DirectiveStatus
}

// RequiredResponses implements spec.md §4.8's
// max(1, ceil(2*|targets|/3)) quorum-size formula.
func RequiredResponses(targets int) int {
	if targets <= 0 {
		return 1
	}
	req := (2*targets + 2) / 3 // ceil(2n/3)
	if req < 1 {
		req = 1
	}
	return req
}

// Result is one worker's response to a directive.
type Result struct {
	WorkerID string
	Value    any
	Err      error
}

// Dispatcher delivers a directive to one worker and returns its
// result; the queen's default implementation calls directly into an
// in-process worker handle, while a distributed deployment would
// route this over a network transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, workerID string, d Directive) (any, error)
}

// IssueDirective dispatches d to every target in parallel via
// dispatcher, completing once RequiredResponses distinct results have
// arrived or d.Deadline passes, whichever is first — following the
// parallel fan-out / first-quorum-wins shape of
// pkg/agent/orchestrator/runner.go's sub-agent dispatch.
func IssueDirective(ctx context.Context, dispatcher Dispatcher, d Directive) ([]Result, error) {
	if d.RequiredResponses <= 0 {
		d.RequiredResponses = RequiredResponses(len(d.Targets))
	}

	if !d.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, d.Deadline)
		defer cancel()
	}

	var mu sync.Mutex
	var results []Result
	succeeded := 0
	g, gctx := errgroup.WithContext(ctx)

	for _, workerID := range d.Targets {
		workerID := workerID
		g.Go(func() error {
			val, err := dispatcher.Dispatch(gctx, workerID, d)
			mu.Lock()
			results = append(results, Result{WorkerID: workerID, Value: val, Err: err})
			if err == nil {
				succeeded++
			}
			reached := succeeded >= d.RequiredResponses
			mu.Unlock()
			if reached {
				return errQuorumReached
			}
			return nil
		})
	}

	_ = g.Wait()
	mu.Lock()
	defer mu.Unlock()

	if succeeded >= d.RequiredResponses {
		return results, nil
	}
	return results, errs.New(errs.KindConsensusTimeout, "directive aborted: quorum not reached before deadline")
}

// errQuorumReached is a sentinel errgroup.Wait error used to stop
// waiting on stragglers once quorum is met; it is never returned to
// callers of IssueDirective.
var errQuorumReached = errs.New(errs.KindCancelled, "quorum reached")
