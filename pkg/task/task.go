// Package task implements the task entity, state machine, dependency
// graph, priority queue, and repository interface from spec.md §4.5
// (component C6).
package task

import (
	"time"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/id"
)

// Status is one state of the task state machine (spec.md §4.5).
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusQueued    Status = "QUEUED"
	StatusAssigned  Status = "ASSIGNED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether s is one of the terminal states.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Priority is the task scheduling priority. Lower values schedule
// first: CRITICAL < HIGH < NORMAL < LOW.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// Task is the typed task entity from spec.md §3.
type Task struct {
	ID             id.TaskID
	Title          string
	Description    string
	Type           string
	Status         Status
	Priority       Priority
	AssignedAgentID string
	Input          any
	Output         any
	Error          error
	BlockedBy      map[id.TaskID]struct{}
	Blocks         map[id.TaskID]struct{}
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	RetryCount     int
	MaxRetries     int
	TimeoutMs      int64
	Metadata       map[string]any
}

// New creates a PENDING task with a freshly minted ID.
func New(title, description, typ string, priority Priority, now time.Time) *Task {
	return &Task{
		ID:         id.NewTaskID(),
		Title:      title,
		Description: description,
		Type:       typ,
		Status:     StatusPending,
		Priority:   priority,
		BlockedBy:  make(map[id.TaskID]struct{}),
		Blocks:     make(map[id.TaskID]struct{}),
		CreatedAt:  now,
		MaxRetries: 3,
	}
}

// Queue transitions PENDING -> QUEUED.
func (t *Task) Queue() error {
	if t.Status != StatusPending {
		return invalidTransition(t.Status, StatusQueued)
	}
	t.Status = StatusQueued
	return nil
}

// Assign transitions QUEUED -> ASSIGNED, recording agentID.
func (t *Task) Assign(agentID string) error {
	if t.Status != StatusQueued {
		return invalidTransition(t.Status, StatusAssigned)
	}
	t.Status = StatusAssigned
	t.AssignedAgentID = agentID
	return nil
}

// Start transitions ASSIGNED -> RUNNING, recording startedAt.
func (t *Task) Start(now time.Time) error {
	if t.Status != StatusAssigned {
		return invalidTransition(t.Status, StatusRunning)
	}
	t.Status = StatusRunning
	t.StartedAt = &now
	return nil
}

// Complete transitions RUNNING -> COMPLETED, recording output and
// completedAt.
func (t *Task) Complete(output any, now time.Time) error {
	if t.Status != StatusRunning {
		return invalidTransition(t.Status, StatusCompleted)
	}
	t.Status = StatusCompleted
	t.Output = output
	t.CompletedAt = &now
	return nil
}

// Fail records a failed RUNNING attempt. If retryCount < maxRetries it
// increments retryCount, clears the assigned agent, and returns to
// QUEUED; otherwise it transitions to the terminal FAILED state.
func (t *Task) Fail(execErr error, now time.Time) error {
	if t.Status != StatusRunning {
		return invalidTransition(t.Status, StatusFailed)
	}
	t.Error = execErr
	if t.RetryCount < t.MaxRetries {
		t.RetryCount++
		t.AssignedAgentID = ""
		t.Status = StatusQueued
		return nil
	}
	t.Status = StatusFailed
	t.CompletedAt = &now
	return nil
}

// Cancel transitions any non-terminal status to CANCELLED.
func (t *Task) Cancel(reason string, now time.Time) error {
	if t.Status.IsTerminal() {
		return invalidTransition(t.Status, StatusCancelled)
	}
	t.Status = StatusCancelled
	if reason != "" {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any)
		}
		t.Metadata["cancelReason"] = reason
	}
	t.CompletedAt = &now
	return nil
}

// Blocked reports whether resolve(blockerID) resolves every entry in
// BlockedBy to a COMPLETED status; resolve returns (status, true) for a
// known task, (_, false) otherwise (treated as still-blocking).
func (t *Task) Blocked(resolve func(id.TaskID) (Status, bool)) bool {
	for blockerID := range t.BlockedBy {
		status, ok := resolve(blockerID)
		if !ok || status != StatusCompleted {
			return true
		}
	}
	return false
}

// Ready reports whether t is QUEUED and unblocked.
func (t *Task) Ready(resolve func(id.TaskID) (Status, bool)) bool {
	return t.Status == StatusQueued && !t.Blocked(resolve)
}

func invalidTransition(from, to Status) error {
	return errs.New(errs.KindInvalidTransition, string(from)+" -> "+string(to))
}
