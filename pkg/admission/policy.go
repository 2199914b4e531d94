package admission

import (
	"time"

	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/ratelimit"
)

// Dimension identifies which admission axis a policy denied on, so the
// controller can always surface "the first failing dimension's reason"
// (spec.md §4.2).
type Dimension string

const (
	DimRPM        Dimension = "rpm"
	DimTPM        Dimension = "tpm"
	DimConcurrent Dimension = "concurrent"
	DimCostMinute Dimension = "cost_per_minute"
	DimCostHour   Dimension = "cost_per_hour"
	DimCostDay    Dimension = "cost_per_day"
	DimTasksMin   Dimension = "tasks_per_minute"
	DimMemoryOps  Dimension = "memory_ops_per_minute"
	DimMessages   Dimension = "messages_per_minute"
	DimMaxConcurrentTasks Dimension = "max_concurrent_tasks"
)

// Verdict is the outcome of checking a single policy.
type Verdict struct {
	Allowed bool
	Failed  Dimension
	WaitMs  int64
}

func allow() Verdict { return Verdict{Allowed: true} }

func deny(dim Dimension, waitMs int64) Verdict {
	return Verdict{Allowed: false, Failed: dim, WaitMs: waitMs}
}

// ProviderPolicyConfig configures a ProviderPolicy.
type ProviderPolicyConfig struct {
	RPM              int
	BurstMultiplier  float64 // e.g. 1.5 for +50% burst; 0/1 disables burst
	TPMCapacity      float64 // one-minute token capacity
	MaxConcurrent    int
	CostPerMinuteUSD float64
	CostPerHourUSD   float64
	CostPerDayUSD    float64
}

// ProviderPolicy composes C2 primitives into the per-provider admission
// axes named in spec.md §4.2: RPM (sliding window, optional burst), TPM
// (token bucket seeded with one-minute capacity), concurrent slots
// (counter), and minute/hour/day cost windows (sliding-window USD
// counters).
type ProviderPolicy struct {
	rpm         *ratelimit.SlidingWindow
	tpm         *ratelimit.TokenBucket
	concurrency *concurrencyCounter
	costMinute  *budgetWindow
	costHour    *budgetWindow
	costDay     *budgetWindow
}

// budgetWindow adapts Budget to the costWindow dimension checks below.
type budgetWindow struct {
	b   *Budget
	dim Dimension
}

func newBudgetWindow(c clock.Clock, limit float64, period time.Duration, dim Dimension) *budgetWindow {
	if limit <= 0 {
		return nil
	}
	return &budgetWindow{b: NewBudget(c, limit, period), dim: dim}
}

// NewProviderPolicy builds a ProviderPolicy from cfg.
func NewProviderPolicy(c clock.Clock, cfg ProviderPolicyConfig) *ProviderPolicy {
	p := &ProviderPolicy{
		concurrency: newConcurrencyCounter(cfg.MaxConcurrent),
	}
	if cfg.RPM > 0 {
		max := cfg.RPM
		if cfg.BurstMultiplier > 1 {
			max = int(float64(cfg.RPM) * cfg.BurstMultiplier)
		}
		p.rpm = ratelimit.NewSlidingWindow(c, max, time.Minute, 12)
	}
	if cfg.TPMCapacity > 0 {
		p.tpm = ratelimit.NewTokenBucket(c, cfg.TPMCapacity, cfg.TPMCapacity/60.0)
	}
	p.costMinute = newBudgetWindow(c, cfg.CostPerMinuteUSD, time.Minute, DimCostMinute)
	p.costHour = newBudgetWindow(c, cfg.CostPerHourUSD, time.Hour, DimCostHour)
	p.costDay = newBudgetWindow(c, cfg.CostPerDayUSD, 24*time.Hour, DimCostDay)
	return p
}

// Check evaluates every configured dimension for one request, returning
// the first failing dimension if any (spec.md: "a single policy failure
// returns the first failing dimension's reason").
func (p *ProviderPolicy) Check(estTokens int, estCostUSD float64) Verdict {
	if p.rpm != nil {
		if d := p.rpm.TryAcquire(1); !d.OK {
			return deny(DimRPM, d.WaitMs)
		}
	}
	if p.tpm != nil {
		if d := p.tpm.TryAcquire(float64(estTokens)); !d.OK {
			return deny(DimTPM, d.WaitMs)
		}
	}
	for _, w := range []*budgetWindow{p.costMinute, p.costHour, p.costDay} {
		if w == nil {
			continue
		}
		if !w.b.TryConsume(estCostUSD) {
			return deny(w.dim, 0)
		}
	}
	return allow()
}

// AcquireSlot attempts to take a concurrency slot. Matched by ReleaseSlot.
func (p *ProviderPolicy) AcquireSlot() bool { return p.concurrency.acquire() }

// ReleaseSlot releases a concurrency slot taken by AcquireSlot.
func (p *ProviderPolicy) ReleaseSlot() { p.concurrency.release() }

// AgentPolicyConfig configures an AgentPolicy.
type AgentPolicyConfig struct {
	TasksPerMinute     int
	MemoryOpsPerMinute int
	MessagesPerMinute  int
	MaxConcurrentTasks int
}

// AgentPolicy enforces spec.md §4.2's per-agent axes.
type AgentPolicy struct {
	tasks       *ratelimit.SlidingWindow
	memoryOps   *ratelimit.SlidingWindow
	messages    *ratelimit.SlidingWindow
	concurrency *concurrencyCounter
}

// NewAgentPolicy builds an AgentPolicy from cfg.
func NewAgentPolicy(c clock.Clock, cfg AgentPolicyConfig) *AgentPolicy {
	mk := func(n int) *ratelimit.SlidingWindow {
		if n <= 0 {
			return nil
		}
		return ratelimit.NewSlidingWindow(c, n, time.Minute, 12)
	}
	return &AgentPolicy{
		tasks:       mk(cfg.TasksPerMinute),
		memoryOps:   mk(cfg.MemoryOpsPerMinute),
		messages:    mk(cfg.MessagesPerMinute),
		concurrency: newConcurrencyCounter(cfg.MaxConcurrentTasks),
	}
}

// CheckTask evaluates the tasks/min + max-concurrent-tasks axes.
func (p *AgentPolicy) CheckTask() Verdict {
	if p.tasks != nil {
		if d := p.tasks.TryAcquire(1); !d.OK {
			return deny(DimTasksMin, d.WaitMs)
		}
	}
	return allow()
}

// CheckMemoryOp evaluates the memory-ops/min axis.
func (p *AgentPolicy) CheckMemoryOp() Verdict {
	if p.memoryOps != nil {
		if d := p.memoryOps.TryAcquire(1); !d.OK {
			return deny(DimMemoryOps, d.WaitMs)
		}
	}
	return allow()
}

// CheckMessage evaluates the messages/min axis.
func (p *AgentPolicy) CheckMessage() Verdict {
	if p.messages != nil {
		if d := p.messages.TryAcquire(1); !d.OK {
			return deny(DimMessages, d.WaitMs)
		}
	}
	return allow()
}

// AcquireTaskSlot takes a concurrent-task slot for this agent.
func (p *AgentPolicy) AcquireTaskSlot() bool { return p.concurrency.acquire() }

// ReleaseTaskSlot releases a concurrent-task slot.
func (p *AgentPolicy) ReleaseTaskSlot() { p.concurrency.release() }

// concurrencyCounter is a simple matched acquire/release counter. The
// controller never auto-releases on timeout (spec.md §4.2): callers are
// responsible for balanced calls.
type concurrencyCounter struct {
	max int
	mu  chan struct{} // buffered channel as a counting semaphore
}

func newConcurrencyCounter(max int) *concurrencyCounter {
	if max <= 0 {
		max = 1 << 30 // effectively unlimited
	}
	return &concurrencyCounter{max: max, mu: make(chan struct{}, max)}
}

func (c *concurrencyCounter) acquire() bool {
	select {
	case c.mu <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *concurrencyCounter) release() {
	select {
	case <-c.mu:
	default:
	}
}

func (c *concurrencyCounter) inUse() int { return len(c.mu) }
func (c *concurrencyCounter) capacity() int { return cap(c.mu) }
