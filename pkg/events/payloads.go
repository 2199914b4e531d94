package events

// TaskStatusPayload is the payload for EventTaskStatus events, published on
// every task lifecycle transition (queued, admitted, running, completed,
// failed, cancelled).
type TaskStatusPayload struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	AgentID   string `json:"agent_id,omitempty"`
	Attempt   int    `json:"attempt,omitempty"`
	Err       string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"` // RFC3339Nano
}

// AgentStatusPayload is the payload for EventAgentStatus events, published
// when an agent registers, deregisters, or changes capability set.
type AgentStatusPayload struct {
	AgentID      string   `json:"agent_id"`
	Status       string   `json:"status"` // registered, deregistered
	Capabilities []string `json:"capabilities,omitempty"`
	Timestamp    string   `json:"timestamp"`
}

// AgentHeartbeatPayload is the payload for EventAgentHeartbeat events.
type AgentHeartbeatPayload struct {
	AgentID   string  `json:"agent_id"`
	Health    string  `json:"health"` // idle, busy, degraded, offline, failed
	Load      float64 `json:"load"`
	Timestamp string  `json:"timestamp"`
}

// DirectiveStatusPayload is the payload for EventDirectiveStatus events,
// published when a swarm directive completes, aborts on deadline, or fails
// to reach quorum.
type DirectiveStatusPayload struct {
	DirectiveID string `json:"directive_id"`
	Status      string `json:"status"` // completed, aborted
	Succeeded   int    `json:"succeeded"`
	Required    int    `json:"required"`
	Timestamp   string `json:"timestamp"`
}

// AdmissionDeniedPayload is the payload for EventAdmissionDenied events,
// published whenever the admission controller rejects or sheds a task.
type AdmissionDeniedPayload struct {
	TaskID    string `json:"task_id"`
	Provider  string `json:"provider,omitempty"`
	Reason    string `json:"reason"` // rate_limited, budget_exceeded, queue_full, shed
	Timestamp string `json:"timestamp"`
}

// CircuitBreakerPayload is the payload for EventCircuitBreaker events,
// published on every breaker state transition.
type CircuitBreakerPayload struct {
	Provider  string `json:"provider"`
	From      string `json:"from"`
	To        string `json:"to"` // closed, open, half_open
	Timestamp string `json:"timestamp"`
}

// LeaderElectionPayload is the payload for EventLeaderElection events,
// published whenever a term change produces a (possibly empty) new leader.
type LeaderElectionPayload struct {
	Term      uint64 `json:"term"`
	LeaderID  string `json:"leader_id"`
	Timestamp string `json:"timestamp"`
}

// ConsensusOutcomePayload is the payload for EventConsensusOutcome events,
// published when a swarm decision (majority, supermajority, unanimous,
// weighted, or byzantine) is tallied.
type ConsensusOutcomePayload struct {
	DecisionID      string  `json:"decision_id"`
	Kind            string  `json:"kind"`
	Consensus       bool    `json:"consensus"`
	ApprovalRate    float64 `json:"approval_rate"`
	ConfidenceScore float64 `json:"confidence_score"`
	Timestamp       string  `json:"timestamp"`
}

// WorkerHealthPayload is the payload for EventWorkerHealth events, published
// when the queen detects a worker timeout or health-state change.
type WorkerHealthPayload struct {
	WorkerID  string `json:"worker_id"`
	Health    string `json:"health"`
	Timestamp string `json:"timestamp"`
}
