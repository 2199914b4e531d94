package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys shared across instruments, grounded on the teacher
// corpus's attribute.Key convention for dimensioning metrics.
var (
	AttrProvider      = attribute.Key("provider")
	AttrAgent         = attribute.Key("agent")
	AttrReason        = attribute.Key("reason")
	AttrKind          = attribute.Key("kind")
	AttrOutcome       = attribute.Key("outcome")
	AttrWorker        = attribute.Key("worker")
)
