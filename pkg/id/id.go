// Package id mints opaque, unique identifiers for tasks, agents,
// directives, and consensus proposals (C1).
package id

import "github.com/google/uuid"

// TaskID, AgentID, DirectiveID, and ProposalID are opaque identifier
// types. They are plain strings so they serialize trivially, but the
// distinct types prevent accidentally passing one kind of id where
// another is expected.
type (
	TaskID      string
	AgentID     string
	DirectiveID string
)

// New mints a new unique identifier, unique within the process lifetime
// (and, in practice, globally — it's a random UUIDv4).
func New() string { return uuid.NewString() }

// NewTaskID mints a new task identifier.
func NewTaskID() TaskID { return TaskID(New()) }

// NewDirectiveID mints a new directive identifier.
func NewDirectiveID() DirectiveID { return DirectiveID(New()) }
