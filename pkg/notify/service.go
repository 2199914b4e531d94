package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/swarmruntime/core/pkg/admission"
	"github.com/swarmruntime/core/pkg/events"
)

// Service triggers notifications for the critical swarm events this
// runtime must surface externally: consensus decided/aborted, circuit
// breaker open/close, throttle mode escalation to emergency/critical,
// and permanent task failure. Nil-safe: every method is a no-op when
// the Service itself is nil, so callers can wire it unconditionally and
// it degrades to silence when no sink is configured.
type Service struct {
	sink   Sink
	logger *slog.Logger
}

// NewService creates a Service posting through sink. Returns nil if
// sink is nil, so disabled configuration propagates the same way the
// teacher's Slack service does.
func NewService(sink Sink) *Service {
	if sink == nil {
		return nil
	}
	return &Service{sink: sink, logger: slog.Default().With("component", "notify")}
}

func (s *Service) notify(ctx context.Context, n Notification) {
	if s == nil {
		return
	}
	if err := s.sink.Notify(ctx, n); err != nil {
		s.logger.Error("notification delivery failed", "title", n.Title, "error", err)
	}
}

// NotifyConsensusOutcome posts a consensus decided/aborted notification.
func (s *Service) NotifyConsensusOutcome(ctx context.Context, p events.ConsensusOutcomePayload) {
	if s == nil {
		return
	}
	title := "Consensus reached"
	if !p.Consensus {
		title = "Consensus aborted"
	}
	s.notify(ctx, Notification{
		Title: title,
		Body:  fmt.Sprintf("decision %s (%s)", p.DecisionID, p.Kind),
		Fields: map[string]string{
			"approval_rate":    fmt.Sprintf("%.2f", p.ApprovalRate),
			"confidence_score": fmt.Sprintf("%.2f", p.ConfidenceScore),
		},
	})
}

// NotifyCircuitBreaker posts a circuit breaker state transition.
func (s *Service) NotifyCircuitBreaker(ctx context.Context, p events.CircuitBreakerPayload) {
	if s == nil {
		return
	}
	if p.To != "open" && p.To != "closed" {
		return
	}
	title := "Circuit breaker opened"
	if p.To == "closed" {
		title = "Circuit breaker closed"
	}
	s.notify(ctx, Notification{
		Title: title,
		Body:  fmt.Sprintf("provider %s: %s -> %s", p.Provider, p.From, p.To),
	})
}

// NotifyThrottleTransition posts a notification whenever the global
// admission policy's throttle mode changes: escalation into emergency
// or critical, recovery back to normal, or movement between the two
// degraded states.
func (s *Service) NotifyThrottleTransition(ctx context.Context, from, to admission.ThrottleMode) {
	if s == nil || from == to {
		return
	}
	s.notify(ctx, Notification{
		Title: "Global throttle mode changed",
		Body:  fmt.Sprintf("%s -> %s", from, to),
	})
}

// NotifyTaskFailed posts a notification when a task permanently fails
// (retries exhausted, no further attempts scheduled).
func (s *Service) NotifyTaskFailed(ctx context.Context, p events.TaskStatusPayload) {
	if s == nil {
		return
	}
	s.notify(ctx, Notification{
		Title: "Task failed",
		Body:  p.Err,
		Fields: map[string]string{
			"task_id": p.TaskID,
			"attempt": fmt.Sprintf("%d", p.Attempt),
		},
	})
}
