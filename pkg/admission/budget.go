package admission

import (
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
)

// Budget tracks monotone usage within a rolling window, reset atomically
// when the window rolls over (spec.md §3, §4.1).
type Budget struct {
	mu        sync.Mutex
	clock     clock.Clock
	limit     float64
	period    time.Duration
	used      float64
	resetAt   time.Time
}

// NewBudget creates a Budget of limit usage units per period, starting a
// fresh window now.
func NewBudget(c clock.Clock, limit float64, period time.Duration) *Budget {
	if c == nil {
		c = clock.New()
	}
	return &Budget{clock: c, limit: limit, period: period, resetAt: c.Now().Add(period)}
}

// rollLocked resets used/resetAt if the window has elapsed. Caller holds mu.
func (b *Budget) rollLocked() {
	now := b.clock.Now()
	if !now.Before(b.resetAt) {
		// Roll forward window-by-window so a long idle period lands on the
		// window boundary aligned with the original schedule, not "now".
		for !now.Before(b.resetAt) {
			b.resetAt = b.resetAt.Add(b.period)
		}
		b.used = 0
	}
}

// TryConsume atomically checks and reserves amount against the budget,
// rolling the window first if needed.
func (b *Budget) TryConsume(amount float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	if b.used+amount > b.limit {
		return false
	}
	b.used += amount
	return true
}

// Snapshot reports the current usage state (used, limit, resetAt) after
// rolling the window if needed.
func (b *Budget) Snapshot() (used, limit float64, resetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.used, b.limit, b.resetAt
}

// Utilization returns used/limit in [0,1], 0 if limit<=0.
func (b *Budget) Utilization() float64 {
	used, limit, _ := b.Snapshot()
	if limit <= 0 {
		return 0
	}
	u := used / limit
	if u > 1 {
		u = 1
	}
	return u
}
