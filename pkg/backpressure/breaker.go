package backpressure

import (
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
)

// State is a circuit breaker state from spec.md §4.3's three-state
// machine.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// BreakerConfig configures a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures (closed
	// state) that trips the breaker to open.
	FailureThreshold int
	// OpenDuration is how long the breaker stays open before probing
	// with a half-open trial.
	OpenDuration time.Duration
	// HalfOpenSuccesses is the number of consecutive half-open
	// successes required to close the breaker again.
	HalfOpenSuccesses int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.OpenDuration <= 0 {
		c.OpenDuration = 30 * time.Second
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = 1
	}
	return c
}

// CircuitBreaker implements the closed -> open -> half-open -> closed
// cycle described in spec.md §4.3. It guards dequeue admission, not the
// work itself: an open breaker makes Queue.Dequeue refuse to hand out
// new items until OpenDuration has elapsed.
type CircuitBreaker struct {
	mu    sync.Mutex
	clock clock.Clock
	cfg   BreakerConfig

	state           State
	consecutiveFail int
	halfOpenOK      int
	openedAt        time.Time
}

// NewCircuitBreaker creates a CircuitBreaker in the closed state.
func NewCircuitBreaker(c clock.Clock, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		clock: c,
		cfg:   cfg.withDefaults(),
		state: StateClosed,
	}
}

// allowLocked reports whether a dequeue should proceed, transitioning
// open -> half-open once OpenDuration has elapsed. Caller must hold the
// owning Queue's mutex is not required; CircuitBreaker has its own.
func (b *CircuitBreaker) allowLocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.clock.Since(b.openedAt) >= b.cfg.OpenDuration {
			b.state = StateHalfOpen
			b.halfOpenOK = 0
			return true
		}
		return false
	}
	return true
}

// recordFailureLocked records a failed attempt's outcome.
func (b *CircuitBreaker) recordFailureLocked() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		b.consecutiveFail++
		if b.consecutiveFail >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.openedAt = b.clock.Now()
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.openedAt = b.clock.Now()
		b.consecutiveFail = b.cfg.FailureThreshold
	}
}

// recordSuccessLocked records a successful attempt's outcome.
func (b *CircuitBreaker) recordSuccessLocked() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		b.consecutiveFail = 0
	case StateHalfOpen:
		b.halfOpenOK++
		if b.halfOpenOK >= b.cfg.HalfOpenSuccesses {
			b.state = StateClosed
			b.consecutiveFail = 0
		}
	}
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
