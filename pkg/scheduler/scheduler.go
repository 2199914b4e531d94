package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/admission"
	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/task"
)

// EventType names an observable scheduler event (spec.md §4.6).
type EventType string

const (
	EventTaskAssigned   EventType = "task-assigned"
	EventAgentTimeout   EventType = "agent-timeout"
	EventNoAgentFound   EventType = "no-agent-found"
)

// Event is one observable occurrence emitted on the scheduler's
// Events channel.
type Event struct {
	Type    EventType
	TaskID  string
	AgentID string
	At      time.Time
}

// CapabilitiesFor maps a task's type to the set of capabilities an
// agent must have to run it.
type CapabilitiesFor func(taskType string) []string

// Config configures a Scheduler.
type Config struct {
	HealthThreshold    float64 // default 0.5
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	BackoffMultiplier  float64
}

func (c Config) withDefaults() Config {
	if c.HealthThreshold <= 0 {
		c.HealthThreshold = 0.5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2
	}
	return c
}

// Scheduler binds ready tasks to capable, healthy, idle-or-busy agents
// per spec.md §4.6's filter/sort/bind algorithm.
type Scheduler struct {
	mu          sync.Mutex
	clock       clock.Clock
	registry    *AgentRegistry
	caps        CapabilitiesFor
	cfg         Config
	admit       *admission.Controller
	backoff     map[string]time.Duration // taskID -> current backoff
	nextAttempt map[string]time.Time
	Events      chan Event
}

// New creates a Scheduler. admit may be nil to skip the per-agent
// max-concurrent-tasks admission axis (spec.md §4.2).
func New(c clock.Clock, registry *AgentRegistry, caps CapabilitiesFor, cfg Config, admit *admission.Controller) *Scheduler {
	return &Scheduler{
		clock:       c,
		registry:    registry,
		caps:        caps,
		cfg:         cfg.withDefaults(),
		admit:       admit,
		backoff:     make(map[string]time.Duration),
		nextAttempt: make(map[string]time.Time),
		Events:      make(chan Event, 256),
	}
}

// SelectAgent implements the three-step filter/sort from spec.md §4.6,
// returning the chosen agent, or false if none is eligible.
func (s *Scheduler) SelectAgent(taskType string) (Agent, bool) {
	required := s.caps(taskType)

	var candidates []Agent
	for _, a := range s.registry.All() {
		if a.Status == AgentOffline {
			continue
		}
		if a.HealthScore <= s.cfg.HealthThreshold {
			continue
		}
		if !hasAnyCapability(a, required) {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return Agent{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Load != candidates[j].Load {
			return candidates[i].Load < candidates[j].Load
		}
		if candidates[i].HealthScore != candidates[j].HealthScore {
			return candidates[i].HealthScore > candidates[j].HealthScore
		}
		return candidates[i].LastHeartbeat.Before(candidates[j].LastHeartbeat)
	})
	return candidates[0], true
}

func hasAnyCapability(a Agent, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, c := range required {
		if a.HasCapability(c) {
			return true
		}
	}
	return false
}

// TryAssign attempts to bind t to an eligible agent. On success it
// transitions t to ASSIGNED, increments the agent's load, emits
// task-assigned, and clears the task's backoff. On failure it leaves t
// QUEUED, emits no-agent-found, and advances the task's exponential
// backoff (capped at MaxBackoff).
func (s *Scheduler) TryAssign(t *task.Task) bool {
	s.mu.Lock()
	now := s.clock.Now()
	if next, ok := s.nextAttempt[string(t.ID)]; ok && now.Before(next) {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	agent, ok := s.SelectAgent(t.Type)
	if !ok {
		s.backoffAndEmit(t, now)
		return false
	}

	if s.admit != nil && !s.admit.AcquireAgentTaskSlot(agent.ID) {
		// Agent is at its configured max-concurrent-tasks limit; treat
		// this round like no eligible agent was found.
		s.backoffAndEmit(t, now)
		return false
	}

	if err := t.Assign(agent.ID); err != nil {
		if s.admit != nil {
			s.admit.ReleaseAgentTaskSlot(agent.ID)
		}
		return false
	}

	expectedCost := 1.0
	if agent.MaxConcurrent > 0 {
		expectedCost = 1.0 / float64(agent.MaxConcurrent)
	}
	s.registry.AdjustLoad(agent.ID, expectedCost)

	s.mu.Lock()
	delete(s.backoff, string(t.ID))
	delete(s.nextAttempt, string(t.ID))
	s.mu.Unlock()

	s.emit(Event{Type: EventTaskAssigned, TaskID: string(t.ID), AgentID: agent.ID, At: now})
	return true
}

// backoffAndEmit advances t's exponential backoff (capped at MaxBackoff)
// and emits no-agent-found; shared by every TryAssign failure path.
func (s *Scheduler) backoffAndEmit(t *task.Task, now time.Time) {
	s.mu.Lock()
	cur := s.backoff[string(t.ID)]
	if cur == 0 {
		cur = s.cfg.InitialBackoff
	} else {
		cur = time.Duration(float64(cur) * s.cfg.BackoffMultiplier)
		if cur > s.cfg.MaxBackoff {
			cur = s.cfg.MaxBackoff
		}
	}
	s.backoff[string(t.ID)] = cur
	s.nextAttempt[string(t.ID)] = now.Add(cur)
	s.mu.Unlock()

	s.emit(Event{Type: EventNoAgentFound, TaskID: string(t.ID), At: now})
}

// Release decrements the agent's load and releases its admission
// concurrent-task slot after a task completes or fails, using the same
// expected-cost formula as TryAssign.
func (s *Scheduler) Release(agentID string) {
	if s.admit != nil {
		s.admit.ReleaseAgentTaskSlot(agentID)
	}
	agent, ok := s.registry.Get(agentID)
	if !ok {
		return
	}
	expectedCost := 1.0
	if agent.MaxConcurrent > 0 {
		expectedCost = 1.0 / float64(agent.MaxConcurrent)
	}
	s.registry.AdjustLoad(agentID, -expectedCost)
}

// CheckTimeouts marks every agent whose LastHeartbeat is older than
// timeout as offline, emitting agent-timeout for each.
func (s *Scheduler) CheckTimeouts(timeout time.Duration) {
	now := s.clock.Now()
	for _, a := range s.registry.All() {
		if a.Status == AgentOffline {
			continue
		}
		if now.Sub(a.LastHeartbeat) > timeout {
			s.registry.MarkOffline(a.ID)
			s.emit(Event{Type: EventAgentTimeout, AgentID: a.ID, At: now})
		}
	}
}

func (s *Scheduler) emit(e Event) {
	select {
	case s.Events <- e:
	default:
	}
}
