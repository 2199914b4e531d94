package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmruntime/core/pkg/admission"
	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/task"
)

func capsForCode(taskType string) []string {
	if taskType == "CODE" {
		return []string{"code"}
	}
	return nil
}

// Invariant 10: if a ready task exists and a capable, healthy, idle
// agent exists, the scheduler assigns within a bounded number of
// rounds (here: the first round).
func TestScheduler_Invariant10_AssignsWhenAgentAvailable(t *testing.T) {
	c := clock.NewManual(time.Now())
	reg := NewAgentRegistry()
	reg.Register(&Agent{ID: "a1", Capabilities: map[string]struct{}{"code": {}}, Status: AgentIdle, HealthScore: 1, MaxConcurrent: 4, LastHeartbeat: c.Now()})

	sched := New(c, reg, capsForCode, Config{}, nil)
	tk := task.New("T", "", "CODE", task.PriorityNormal, c.Now())
	require.NoError(t, tk.Queue())

	assert.True(t, sched.TryAssign(tk))
	assert.Equal(t, task.StatusAssigned, tk.Status)
	assert.Equal(t, "a1", tk.AssignedAgentID)

	a, _ := reg.Get("a1")
	assert.Greater(t, a.Load, 0.0)
}

func TestScheduler_NoCapableAgentBacksOff(t *testing.T) {
	c := clock.NewManual(time.Now())
	reg := NewAgentRegistry()
	reg.Register(&Agent{ID: "a1", Capabilities: map[string]struct{}{"writing": {}}, Status: AgentIdle, HealthScore: 1, LastHeartbeat: c.Now()})

	sched := New(c, reg, capsForCode, Config{InitialBackoff: 10 * time.Millisecond}, nil)
	tk := task.New("T", "", "CODE", task.PriorityNormal, c.Now())
	require.NoError(t, tk.Queue())

	assert.False(t, sched.TryAssign(tk))
	assert.Equal(t, task.StatusQueued, tk.Status)

	// Immediate retry within backoff window is suppressed.
	assert.False(t, sched.TryAssign(tk))

	c.Advance(20 * time.Millisecond)
	assert.False(t, sched.TryAssign(tk)) // still no capable agent
}

func TestScheduler_UnhealthyAgentExcluded(t *testing.T) {
	c := clock.NewManual(time.Now())
	reg := NewAgentRegistry()
	reg.Register(&Agent{ID: "sick", Capabilities: map[string]struct{}{"code": {}}, Status: AgentIdle, HealthScore: 0.2, LastHeartbeat: c.Now()})

	sched := New(c, reg, capsForCode, Config{}, nil)
	tk := task.New("T", "", "CODE", task.PriorityNormal, c.Now())
	require.NoError(t, tk.Queue())

	assert.False(t, sched.TryAssign(tk))
}

func TestScheduler_SortsByLoadThenHealthThenHeartbeat(t *testing.T) {
	c := clock.NewManual(time.Now())
	reg := NewAgentRegistry()
	base := c.Now()
	reg.Register(&Agent{ID: "busy", Capabilities: map[string]struct{}{"code": {}}, Status: AgentBusy, HealthScore: 1, Load: 0.5, LastHeartbeat: base})
	reg.Register(&Agent{ID: "idle", Capabilities: map[string]struct{}{"code": {}}, Status: AgentIdle, HealthScore: 0.9, Load: 0, LastHeartbeat: base})

	sched := New(c, reg, capsForCode, Config{}, nil)
	chosen, ok := sched.SelectAgent("CODE")
	require.True(t, ok)
	assert.Equal(t, "idle", chosen.ID)
}

// An agent already at its admission-configured max-concurrent-tasks
// limit is treated like no eligible agent was found, and TryAssign
// backs off rather than over-assigning.
func TestScheduler_AgentAtConcurrentTaskLimitBacksOff(t *testing.T) {
	c := clock.NewManual(time.Now())
	reg := NewAgentRegistry()
	reg.Register(&Agent{ID: "a1", Capabilities: map[string]struct{}{"code": {}}, Status: AgentIdle, HealthScore: 1, MaxConcurrent: 4, LastHeartbeat: c.Now()})

	ctrl := admission.NewController(nil, admission.ControllerConfig{})
	ctrl.RegisterAgent("a1", admission.NewAgentPolicy(c, admission.AgentPolicyConfig{MaxConcurrentTasks: 1}))
	require.True(t, ctrl.AcquireAgentTaskSlot("a1")) // simulate an already-running task

	sched := New(c, reg, capsForCode, Config{InitialBackoff: 10 * time.Millisecond}, ctrl)
	tk := task.New("T", "", "CODE", task.PriorityNormal, c.Now())
	require.NoError(t, tk.Queue())

	assert.False(t, sched.TryAssign(tk))
	assert.Equal(t, task.StatusQueued, tk.Status)
}

// Release frees the agent's admission concurrent-task slot so a
// subsequent TryAssign can bind it again.
func TestScheduler_ReleaseFreesConcurrentTaskSlot(t *testing.T) {
	c := clock.NewManual(time.Now())
	reg := NewAgentRegistry()
	reg.Register(&Agent{ID: "a1", Capabilities: map[string]struct{}{"code": {}}, Status: AgentIdle, HealthScore: 1, MaxConcurrent: 4, LastHeartbeat: c.Now()})

	ctrl := admission.NewController(nil, admission.ControllerConfig{})
	ctrl.RegisterAgent("a1", admission.NewAgentPolicy(c, admission.AgentPolicyConfig{MaxConcurrentTasks: 1}))

	sched := New(c, reg, capsForCode, Config{}, ctrl)
	tk1 := task.New("T1", "", "CODE", task.PriorityNormal, c.Now())
	require.NoError(t, tk1.Queue())
	assert.True(t, sched.TryAssign(tk1))

	tk2 := task.New("T2", "", "CODE", task.PriorityNormal, c.Now())
	require.NoError(t, tk2.Queue())
	assert.False(t, sched.TryAssign(tk2), "agent is already at its concurrent-task limit")

	sched.Release("a1")
	assert.True(t, sched.TryAssign(tk2), "slot should be free after Release")
}

func TestScheduler_CheckTimeoutsMarksOfflineAndEmits(t *testing.T) {
	c := clock.NewManual(time.Now())
	reg := NewAgentRegistry()
	reg.Register(&Agent{ID: "a1", Status: AgentIdle, HealthScore: 1, LastHeartbeat: c.Now()})

	sched := New(c, reg, capsForCode, Config{}, nil)
	c.Advance(time.Minute)
	sched.CheckTimeouts(30 * time.Second)

	a, _ := reg.Get("a1")
	assert.Equal(t, AgentOffline, a.Status)

	select {
	case ev := <-sched.Events:
		assert.Equal(t, EventAgentTimeout, ev.Type)
	default:
		t.Fatal("expected agent-timeout event")
	}
}
