package events

import "time"

// Publisher publishes typed events onto a Bus. Delivery is fire-and-forget:
// publishing never blocks on subscribers and never fails on a full buffer
// (see Bus.Publish). Persistence, if any, is a concern of the caller (e.g.
// the task repository records its own status transitions independently of
// this best-effort notification path).
type Publisher struct {
	bus *Bus
}

// NewPublisher creates a Publisher backed by bus.
func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{bus: bus}
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// PublishTaskStatus publishes an EventTaskStatus event on TaskChannel(taskID).
func (p *Publisher) PublishTaskStatus(taskID string, payload TaskStatusPayload) {
	payload.TaskID = taskID
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventTaskStatus, Channel: TaskChannel(taskID), Payload: payload})
}

// PublishAgentStatus publishes an EventAgentStatus event on GlobalChannel.
func (p *Publisher) PublishAgentStatus(payload AgentStatusPayload) {
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventAgentStatus, Channel: GlobalChannel, Payload: payload})
}

// PublishAgentHeartbeat publishes an EventAgentHeartbeat event on GlobalChannel.
func (p *Publisher) PublishAgentHeartbeat(payload AgentHeartbeatPayload) {
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventAgentHeartbeat, Channel: GlobalChannel, Payload: payload})
}

// PublishDirectiveStatus publishes an EventDirectiveStatus event on GlobalChannel.
func (p *Publisher) PublishDirectiveStatus(payload DirectiveStatusPayload) {
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventDirectiveStatus, Channel: GlobalChannel, Payload: payload})
}

// PublishAdmissionDenied publishes an EventAdmissionDenied event on
// TaskChannel(taskID) in addition to GlobalChannel delivery.
func (p *Publisher) PublishAdmissionDenied(taskID string, payload AdmissionDeniedPayload) {
	payload.TaskID = taskID
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventAdmissionDenied, Channel: TaskChannel(taskID), Payload: payload})
}

// PublishCircuitBreaker publishes an EventCircuitBreaker event on GlobalChannel.
func (p *Publisher) PublishCircuitBreaker(payload CircuitBreakerPayload) {
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventCircuitBreaker, Channel: GlobalChannel, Payload: payload})
}

// PublishLeaderElection publishes an EventLeaderElection event on GlobalChannel.
func (p *Publisher) PublishLeaderElection(payload LeaderElectionPayload) {
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventLeaderElection, Channel: GlobalChannel, Payload: payload})
}

// PublishConsensusOutcome publishes an EventConsensusOutcome event on GlobalChannel.
func (p *Publisher) PublishConsensusOutcome(payload ConsensusOutcomePayload) {
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventConsensusOutcome, Channel: GlobalChannel, Payload: payload})
}

// PublishWorkerHealth publishes an EventWorkerHealth event on GlobalChannel.
func (p *Publisher) PublishWorkerHealth(payload WorkerHealthPayload) {
	if payload.Timestamp == "" {
		payload.Timestamp = now()
	}
	p.bus.Publish(Event{Type: EventWorkerHealth, Channel: GlobalChannel, Payload: payload})
}
