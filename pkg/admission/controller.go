// Package admission composes the C2 rate-limiter primitives into
// per-provider, per-agent, and global policies, exposing a single
// AdmitRequest decision (spec.md §4.2, component C3).
package admission

import (
	"math/rand/v2"
	"sync"

	"github.com/swarmruntime/core/pkg/errs"
)

// DegradationMode selects how the controller responds when the global
// policy would deny a request (spec.md §4.2).
type DegradationMode string

const (
	DegradationReject   DegradationMode = "reject"
	DegradationQueue    DegradationMode = "queue"
	DegradationShed     DegradationMode = "shed"
	DegradationPriority DegradationMode = "priority"
)

// Decision is the result of AdmitRequest.
type Decision struct {
	Allowed  bool
	Reason   string
	WaitMs   int64
	Degraded bool
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	DegradationMode DegradationMode
	ShedProbability float64 // used when DegradationMode == DegradationShed
	PriorityFloor   func(mode ThrottleMode) int // used when DegradationMode == DegradationPriority; lower int = higher priority required
}

// Controller composes provider/agent/global policies and renders a
// single admission decision per request.
type Controller struct {
	mu        sync.RWMutex
	providers map[string]*ProviderPolicy
	agents    map[string]*AgentPolicy
	global    *GlobalPolicy
	cfg       ControllerConfig
}

// NewController creates a Controller with the given global policy and
// degradation configuration. Providers and agents are registered via
// RegisterProvider/RegisterAgent.
func NewController(global *GlobalPolicy, cfg ControllerConfig) *Controller {
	if cfg.DegradationMode == "" {
		cfg.DegradationMode = DegradationReject
	}
	return &Controller{
		providers: make(map[string]*ProviderPolicy),
		agents:    make(map[string]*AgentPolicy),
		global:    global,
		cfg:       cfg,
	}
}

// RegisterProvider registers a provider's policy.
func (c *Controller) RegisterProvider(providerID string, p *ProviderPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[providerID] = p
}

// RegisterAgent registers an agent's policy.
func (c *Controller) RegisterAgent(agentID string, p *AgentPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents[agentID] = p
}

// AcquireProviderSlot takes a concurrent-slot for providerID, matched by
// ReleaseProviderSlot. Returns true (no-op) when providerID has no
// registered policy, so an unconfigured provider is never throttled on
// this axis. Callers must release unconditionally once the dispatch to
// providerID returns, whether it errored or not (spec.md §4.4 step 4).
func (c *Controller) AcquireProviderSlot(providerID string) bool {
	c.mu.RLock()
	p := c.providers[providerID]
	c.mu.RUnlock()
	if p == nil {
		return true
	}
	return p.AcquireSlot()
}

// ReleaseProviderSlot releases a concurrency slot taken by
// AcquireProviderSlot.
func (c *Controller) ReleaseProviderSlot(providerID string) {
	c.mu.RLock()
	p := c.providers[providerID]
	c.mu.RUnlock()
	if p != nil {
		p.ReleaseSlot()
	}
}

// AcquireGlobalSlot takes a global concurrency slot, matched by
// ReleaseGlobalSlot. Returns true (no-op) when no global policy is
// configured.
func (c *Controller) AcquireGlobalSlot() bool {
	if c.global == nil {
		return true
	}
	return c.global.AcquireSlot()
}

// ReleaseGlobalSlot releases a global concurrency slot taken by
// AcquireGlobalSlot.
func (c *Controller) ReleaseGlobalSlot() {
	if c.global != nil {
		c.global.ReleaseSlot()
	}
}

// AcquireAgentTaskSlot takes a concurrent-task slot for agentID, matched
// by ReleaseAgentTaskSlot. Returns true (no-op) when agentID has no
// registered policy.
func (c *Controller) AcquireAgentTaskSlot(agentID string) bool {
	c.mu.RLock()
	p := c.agents[agentID]
	c.mu.RUnlock()
	if p == nil {
		return true
	}
	return p.AcquireTaskSlot()
}

// ReleaseAgentTaskSlot releases a concurrent-task slot taken by
// AcquireAgentTaskSlot.
func (c *Controller) ReleaseAgentTaskSlot(agentID string) {
	c.mu.RLock()
	p := c.agents[agentID]
	c.mu.RUnlock()
	if p != nil {
		p.ReleaseTaskSlot()
	}
}

// AdmitRequest renders the admission decision for one request, per
// spec.md §4.2: AdmitRequest(providerId, agentId, estTokens, estCost) ->
// {allowed, reason?, waitMs?, degraded?}.
//
// priority, when DegradationMode is "priority", is a scheduling-order
// priority (lower value = higher priority, matching the task priority
// convention CRITICAL < HIGH < NORMAL < LOW).
func (c *Controller) AdmitRequest(providerID, agentID string, estTokens int, estCostUSD float64, priority int) Decision {
	c.mu.RLock()
	providerPolicy := c.providers[providerID]
	agentPolicy := c.agents[agentID]
	c.mu.RUnlock()

	mode := ThrottleNormal
	if c.global != nil {
		mode = c.global.Mode()
		if mode == ThrottleCritical {
			return Decision{Allowed: false, Reason: "global throttle mode critical"}
		}
	}

	if providerPolicy != nil {
		if v := providerPolicy.Check(estTokens, estCostUSD); !v.Allowed {
			return Decision{Allowed: false, Reason: string(v.Failed), WaitMs: v.WaitMs}
		}
	}
	if agentPolicy != nil {
		if v := agentPolicy.CheckTask(); !v.Allowed {
			return Decision{Allowed: false, Reason: string(v.Failed), WaitMs: v.WaitMs}
		}
	}

	if c.global != nil {
		if v := c.global.Check(estTokens, estCostUSD); !v.Allowed {
			return c.degrade(v, mode, priority)
		}
	}

	return Decision{Allowed: true}
}

// degrade renders the degraded-path decision according to the
// configured DegradationMode.
func (c *Controller) degrade(v Verdict, mode ThrottleMode, priority int) Decision {
	switch c.cfg.DegradationMode {
	case DegradationQueue:
		return Decision{Allowed: true, Degraded: true, Reason: string(v.Failed)}
	case DegradationShed:
		p := c.cfg.ShedProbability
		if p <= 0 {
			p = 0.5
		}
		if rand.Float64() < p {
			return Decision{Allowed: false, Reason: "shed: " + string(v.Failed)}
		}
		return Decision{Allowed: true, Degraded: true, Reason: string(v.Failed)}
	case DegradationPriority:
		floor := 2 // NORMAL by default
		if c.cfg.PriorityFloor != nil {
			floor = c.cfg.PriorityFloor(mode)
		}
		if priority < floor {
			return Decision{Allowed: true, Degraded: true, Reason: string(v.Failed)}
		}
		return Decision{Allowed: false, Reason: "priority below dynamic floor: " + string(v.Failed)}
	default: // DegradationReject
		return Decision{Allowed: false, Reason: string(v.Failed), WaitMs: v.WaitMs}
	}
}

// ToError converts a denied Decision into the uniform error shape.
func (d Decision) ToError() error {
	if d.Allowed {
		return nil
	}
	kind := errs.KindRateLimit
	switch d.Reason {
	case string(DimCostMinute), string(DimCostHour), string(DimCostDay):
		kind = errs.KindBudgetExceeded
	case string(DimConcurrent), string(DimMaxConcurrentTasks):
		kind = errs.KindConcurrency
	}
	return errs.New(kind, d.Reason)
}
