// Package notify delivers notifications for critical swarm events
// (consensus decided/aborted, circuit breaker transitions, throttle mode
// escalation, permanent task failure) to an external channel. The Sink
// interface keeps the trigger logic in Service decoupled from any one
// delivery mechanism.
package notify

import "context"

// Notification is a single message to deliver: a short title, a longer
// body, and free-form fields for structured context (provider name,
// task ID, and so on).
type Notification struct {
	Title  string
	Body   string
	Fields map[string]string
}

// Sink delivers a Notification. Implementations should be fail-open:
// callers treat delivery errors as logged, not fatal.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}
