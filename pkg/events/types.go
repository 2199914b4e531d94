// Package events defines the observable-event boundary (spec.md §6):
// one typed payload per event, fanned out to in-process subscribers and
// optionally to WebSocket clients via Bus (bus.go).
package events

import "time"

// EventType names one of the observable events spec.md §6 requires:
// task lifecycle, agent lifecycle, directive lifecycle, admission
// denials, circuit breaker transitions, leader election, and
// consensus outcomes.
type EventType string

const (
	EventTaskStatus        EventType = "task.status"
	EventAgentStatus        EventType = "agent.status"
	EventAgentHeartbeat     EventType = "agent.heartbeat"
	EventDirectiveStatus    EventType = "directive.status"
	EventAdmissionDenied    EventType = "admission.denied"
	EventCircuitBreaker     EventType = "circuit_breaker.transition"
	EventLeaderElection     EventType = "consensus.leader_election"
	EventConsensusOutcome   EventType = "consensus.outcome"
	EventWorkerHealth       EventType = "swarm.worker_health"
)

// GlobalChannel is the channel every event is additionally broadcast
// to, for dashboard-style "everything" subscribers.
const GlobalChannel = "global"

// TaskChannel returns the channel name for a specific task's events.
func TaskChannel(taskID string) string { return "task:" + taskID }

// Event is the envelope delivered to subscribers: a typed payload with
// routing and timing metadata.
type Event struct {
	Type    EventType
	Channel string
	At      time.Time
	Payload any
}

// ClientMessage is the JSON structure for client -> server WebSocket
// messages (subscribe/unsubscribe to a channel).
type ClientMessage struct {
	Action  string `json:"action"` // "subscribe", "unsubscribe", "ping"
	Channel string `json:"channel,omitempty"`
}
