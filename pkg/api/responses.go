package api

import (
	"time"

	"github.com/swarmruntime/core/pkg/database"
)

// TaskResponse is the JSON representation of a task returned by
// POST /tasks and GET /tasks/:id.
type TaskResponse struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	Priority        string         `json:"priority"`
	AssignedAgentID string         `json:"assignedAgentId,omitempty"`
	RetryCount      int            `json:"retryCount"`
	MaxRetries      int            `json:"maxRetries"`
	Error           string         `json:"error,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	StartedAt       *time.Time     `json:"startedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// AgentResponse is the JSON representation of a registered agent.
type AgentResponse struct {
	ID            string    `json:"id"`
	Capabilities  []string  `json:"capabilities"`
	Status        string    `json:"status"`
	HealthScore   float64   `json:"healthScore"`
	Load          float64   `json:"load"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

// HealthResponse is the JSON body of GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Providers int    `json:"providers"`
	Queue     struct {
		Total int `json:"total"`
	} `json:"queue"`
	Database *database.HealthStatus `json:"database,omitempty"`
}

// errorResponse is the uniform JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}
