package admission

import (
	"sync"
	"time"

	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/ratelimit"
)

// ThrottleMode is the global load-derived state machine from spec.md
// §4.2: {normal, emergency, critical}, transitioning up when load
// crosses threshold and 1.1*threshold, back down below 0.8*threshold.
type ThrottleMode string

const (
	ThrottleNormal    ThrottleMode = "normal"
	ThrottleEmergency ThrottleMode = "emergency"
	ThrottleCritical  ThrottleMode = "critical"
)

// GlobalPolicyConfig configures a GlobalPolicy.
type GlobalPolicyConfig struct {
	RPM              int
	TPMCapacity      float64
	MaxConcurrent    int
	CostPerHourUSD   float64
	CostPerDayUSD    float64
	Threshold        float64 // default 0.9
}

// GlobalPolicy enforces spec.md §4.2's system-wide axes and derives
// systemLoad + throttleMode from them.
type GlobalPolicy struct {
	mu sync.Mutex

	rpm         *ratelimit.SlidingWindow
	rpmMax      int
	tpm         *ratelimit.TokenBucket
	tpmCapacity float64
	concurrency *concurrencyCounter
	costHour    *Budget
	costDay     *Budget

	threshold float64
	mode      ThrottleMode
}

// NewGlobalPolicy builds a GlobalPolicy from cfg.
func NewGlobalPolicy(c clock.Clock, cfg GlobalPolicyConfig) *GlobalPolicy {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.9
	}
	g := &GlobalPolicy{
		concurrency: newConcurrencyCounter(cfg.MaxConcurrent),
		threshold:   threshold,
		mode:        ThrottleNormal,
	}
	if cfg.RPM > 0 {
		g.rpm = ratelimit.NewSlidingWindow(c, cfg.RPM, time.Minute, 12)
		g.rpmMax = cfg.RPM
	}
	if cfg.TPMCapacity > 0 {
		g.tpm = ratelimit.NewTokenBucket(c, cfg.TPMCapacity, cfg.TPMCapacity/60.0)
		g.tpmCapacity = cfg.TPMCapacity
	}
	if cfg.CostPerHourUSD > 0 {
		g.costHour = NewBudget(c, cfg.CostPerHourUSD, time.Hour)
	}
	if cfg.CostPerDayUSD > 0 {
		g.costDay = NewBudget(c, cfg.CostPerDayUSD, 24*time.Hour)
	}
	return g
}

// Check evaluates every populated global dimension.
func (g *GlobalPolicy) Check(estTokens int, estCostUSD float64) Verdict {
	if g.rpm != nil {
		if d := g.rpm.TryAcquire(1); !d.OK {
			g.recomputeMode()
			return deny(DimRPM, d.WaitMs)
		}
	}
	if g.tpm != nil {
		if d := g.tpm.TryAcquire(float64(estTokens)); !d.OK {
			g.recomputeMode()
			return deny(DimTPM, d.WaitMs)
		}
	}
	if g.costHour != nil && !g.costHour.TryConsume(estCostUSD) {
		g.recomputeMode()
		return deny(DimCostHour, 0)
	}
	if g.costDay != nil && !g.costDay.TryConsume(estCostUSD) {
		g.recomputeMode()
		return deny(DimCostDay, 0)
	}
	g.recomputeMode()
	return allow()
}

// AcquireSlot takes a global concurrency slot.
func (g *GlobalPolicy) AcquireSlot() bool { return g.concurrency.acquire() }

// ReleaseSlot releases a global concurrency slot.
func (g *GlobalPolicy) ReleaseSlot() { g.concurrency.release() }

// SystemLoad returns the mean utilization across populated dimensions,
// in [0,1].
func (g *GlobalPolicy) SystemLoad() float64 {
	var sum float64
	var n int
	if g.rpm != nil && g.rpmMax > 0 {
		sum += float64(g.rpm.Count()) / float64(g.rpmMax)
		n++
	}
	if g.tpm != nil && g.tpmCapacity > 0 {
		sum += 1 - (g.tpm.Available() / g.tpmCapacity)
		n++
	}
	if g.concurrency.capacity() > 0 {
		sum += float64(g.concurrency.inUse()) / float64(g.concurrency.capacity())
		n++
	}
	if g.costHour != nil {
		sum += g.costHour.Utilization()
		n++
	}
	if g.costDay != nil {
		sum += g.costDay.Utilization()
		n++
	}
	if n == 0 {
		return 0
	}
	load := sum / float64(n)
	if load > 1 {
		load = 1
	}
	if load < 0 {
		load = 0
	}
	return load
}

// recomputeMode updates the throttle mode based on the current system
// load, implementing the hysteresis in spec.md §4.2: up-transitions at
// threshold and 1.1*threshold, down-transition below 0.8*threshold.
func (g *GlobalPolicy) recomputeMode() {
	g.mu.Lock()
	defer g.mu.Unlock()
	load := g.SystemLoad()
	switch g.mode {
	case ThrottleNormal:
		if load >= g.threshold*1.1 {
			g.mode = ThrottleCritical
		} else if load >= g.threshold {
			g.mode = ThrottleEmergency
		}
	case ThrottleEmergency:
		if load >= g.threshold*1.1 {
			g.mode = ThrottleCritical
		} else if load < g.threshold*0.8 {
			g.mode = ThrottleNormal
		}
	case ThrottleCritical:
		if load < g.threshold*0.8 {
			g.mode = ThrottleNormal
		} else if load < g.threshold*1.1 {
			g.mode = ThrottleEmergency
		}
	}
}

// Mode returns the current throttle mode.
func (g *GlobalPolicy) Mode() ThrottleMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}
