// Package errs provides the single error taxonomy shared by every core
// component (C1-C9). Spec error kinds cross component boundaries (e.g. a
// provider error and a queue error must both be inspectable the same way
// by a caller), so they are declared once here rather than per package.
package errs

import "fmt"

// Kind enumerates the language-neutral error kinds from the specification.
type Kind string

const (
	KindInvalidArgument     Kind = "invalid_argument"
	KindInvalidTransition   Kind = "invalid_transition"
	KindNotFound            Kind = "not_found"
	KindAlreadyExists       Kind = "already_exists"
	KindBlocked             Kind = "blocked"
	KindRateLimit           Kind = "admission.rate_limit"
	KindBudgetExceeded      Kind = "admission.budget_exceeded"
	KindConcurrency         Kind = "admission.concurrency"
	KindQueueFull           Kind = "queue_full"
	KindQueueTimeout        Kind = "queue_timeout"
	KindCircuitOpen         Kind = "circuit_open"
	KindProviderAuth        Kind = "provider.auth"
	KindProviderModel       Kind = "provider.model"
	KindProviderServer      Kind = "provider.server"
	KindProviderNetwork     Kind = "provider.network"
	KindProviderTimeout     Kind = "provider.timeout"
	KindProviderInvalid     Kind = "provider.invalid_request"
	KindConsensusNoQuorum   Kind = "consensus.no_quorum"
	KindConsensusTimeout    Kind = "consensus.timeout"
	KindConsensusInvalidView Kind = "consensus.invalid_view"
	KindCancelled           Kind = "cancelled"
	KindUnavailable         Kind = "unavailable"
)

// retryable reports the default retry disposition for a kind. Callers that
// know better (e.g. a provider adapter classifying a specific HTTP status)
// should build an Error with an explicit Retryable value instead of relying
// on this table.
var retryable = map[Kind]bool{
	KindRateLimit:       true,
	KindQueueTimeout:    true,
	KindCircuitOpen:     true,
	KindProviderServer:  true,
	KindProviderNetwork: true,
	KindProviderTimeout: true,
	KindConsensusTimeout: true,
	KindUnavailable:     true,
}

// Error is the uniform error shape surfaced to every caller and streamed
// in-band by streaming APIs as a terminal error event.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, errs.New(KindNotFound, "")) style matching on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error with the default retry disposition for kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Retryable: retryable[kind]}
}

// Wrap builds an Error carrying cause, with the default retry disposition for kind.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Retryable: retryable[kind], Cause: cause}
}

// WithRetryable returns a copy of e with Retryable overridden.
func (e *Error) WithRetryable(r bool) *Error {
	c := *e
	c.Retryable = r
	return &c
}

// KindOf extracts the Kind from err if it (or something it wraps) is an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if as(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// as is a tiny indirection over errors.As to avoid importing errors twice
// in call sites that only need this one helper.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
