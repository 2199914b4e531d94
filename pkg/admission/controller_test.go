package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmruntime/core/pkg/clock"
)

// S9 — Budget-based routing failover groundwork: a provider at its daily
// limit denies, independent of other providers.
func TestProviderPolicy_DailyBudgetDenies(t *testing.T) {
	c := clock.NewManual(time.Now())
	p := NewProviderPolicy(c, ProviderPolicyConfig{CostPerDayUSD: 100})
	// Pre-consume 99 of 100.
	require.True(t, p.costDay.b.TryConsume(99))

	v := p.Check(10, 5)
	assert.False(t, v.Allowed)
	assert.Equal(t, DimCostDay, v.Failed)
}

func TestController_AdmitRequest_Allows(t *testing.T) {
	c := clock.NewManual(time.Now())
	global := NewGlobalPolicy(c, GlobalPolicyConfig{RPM: 100, MaxConcurrent: 10})
	ctrl := NewController(global, ControllerConfig{})
	ctrl.RegisterProvider("p1", NewProviderPolicy(c, ProviderPolicyConfig{RPM: 10, TPMCapacity: 1000}))

	d := ctrl.AdmitRequest("p1", "", 10, 0.01, 2)
	assert.True(t, d.Allowed)
}

func TestController_AdmitRequest_ProviderDenyReturnsFirstFailingDimension(t *testing.T) {
	c := clock.NewManual(time.Now())
	ctrl := NewController(nil, ControllerConfig{})
	ctrl.RegisterProvider("p1", NewProviderPolicy(c, ProviderPolicyConfig{RPM: 1}))

	require.True(t, ctrl.AdmitRequest("p1", "", 1, 0, 2).Allowed)
	d := ctrl.AdmitRequest("p1", "", 1, 0, 2)
	assert.False(t, d.Allowed)
	assert.Equal(t, string(DimRPM), d.Reason)
}

func TestController_DegradationModeQueue(t *testing.T) {
	c := clock.NewManual(time.Now())
	global := NewGlobalPolicy(c, GlobalPolicyConfig{RPM: 1, Threshold: 0.9})
	ctrl := NewController(global, ControllerConfig{DegradationMode: DegradationQueue})

	require.True(t, ctrl.AdmitRequest("", "", 1, 0, 2).Allowed)
	d := ctrl.AdmitRequest("", "", 1, 0, 2)
	assert.True(t, d.Allowed)
	assert.True(t, d.Degraded)
}

func TestController_DegradationModeReject(t *testing.T) {
	c := clock.NewManual(time.Now())
	global := NewGlobalPolicy(c, GlobalPolicyConfig{RPM: 1})
	ctrl := NewController(global, ControllerConfig{DegradationMode: DegradationReject})

	require.True(t, ctrl.AdmitRequest("", "", 1, 0, 2).Allowed)
	d := ctrl.AdmitRequest("", "", 1, 0, 2)
	assert.False(t, d.Allowed)
}

func TestController_CriticalModeOverridesUnconditionally(t *testing.T) {
	c := clock.NewManual(time.Now())
	global := NewGlobalPolicy(c, GlobalPolicyConfig{RPM: 10, Threshold: 0.1})
	ctrl := NewController(global, ControllerConfig{DegradationMode: DegradationQueue})

	// Drive load above 1.1*threshold to flip to critical.
	for i := 0; i < 10; i++ {
		ctrl.AdmitRequest("", "", 0, 0, 2)
	}
	assert.Equal(t, ThrottleCritical, global.Mode())

	d := ctrl.AdmitRequest("", "", 0, 0, 2)
	assert.False(t, d.Allowed)
}

func TestController_AcquireReleaseProviderSlot(t *testing.T) {
	c := clock.NewManual(time.Now())
	ctrl := NewController(nil, ControllerConfig{})
	ctrl.RegisterProvider("p1", NewProviderPolicy(c, ProviderPolicyConfig{MaxConcurrent: 1}))

	assert.True(t, ctrl.AcquireProviderSlot("p1"))
	assert.False(t, ctrl.AcquireProviderSlot("p1"))

	ctrl.ReleaseProviderSlot("p1")
	assert.True(t, ctrl.AcquireProviderSlot("p1"))
}

func TestController_AcquireProviderSlot_UnregisteredProviderAlwaysAllows(t *testing.T) {
	ctrl := NewController(nil, ControllerConfig{})
	assert.True(t, ctrl.AcquireProviderSlot("unknown"))
	ctrl.ReleaseProviderSlot("unknown") // must not panic
}

func TestController_AcquireReleaseAgentTaskSlot(t *testing.T) {
	c := clock.NewManual(time.Now())
	ctrl := NewController(nil, ControllerConfig{})
	ctrl.RegisterAgent("a1", NewAgentPolicy(c, AgentPolicyConfig{MaxConcurrentTasks: 1}))

	assert.True(t, ctrl.AcquireAgentTaskSlot("a1"))
	assert.False(t, ctrl.AcquireAgentTaskSlot("a1"))

	ctrl.ReleaseAgentTaskSlot("a1")
	assert.True(t, ctrl.AcquireAgentTaskSlot("a1"))
}

func TestConcurrencyCounter_MatchedAcquireRelease(t *testing.T) {
	cc := newConcurrencyCounter(2)
	assert.True(t, cc.acquire())
	assert.True(t, cc.acquire())
	assert.False(t, cc.acquire())
	cc.release()
	assert.True(t, cc.acquire())
}

func TestGlobalPolicy_ThrottleModeHysteresis(t *testing.T) {
	c := clock.NewManual(time.Now())
	g := NewGlobalPolicy(c, GlobalPolicyConfig{RPM: 10, Threshold: 0.5})
	assert.Equal(t, ThrottleNormal, g.Mode())

	for i := 0; i < 6; i++ {
		g.Check(0, 0)
	}
	assert.NotEqual(t, ThrottleNormal, g.Mode())
}
