package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmruntime/core/pkg/id"
)

// S2 — Dependency unblocking.
func TestQueue_S2_DependencyUnblocking(t *testing.T) {
	now := time.Now()
	t1 := New("T1", "", "CODE", PriorityNormal, now)
	t2 := New("T2", "", "CODE", PriorityNormal, now)
	t2.BlockedBy[t1.ID] = struct{}{}

	byID := map[id.TaskID]*Task{t1.ID: t1, t2.ID: t2}
	resolve := func(tid id.TaskID) (Status, bool) {
		tk, ok := byID[tid]
		if !ok {
			return "", false
		}
		return tk.Status, true
	}

	q := NewQueue(0, resolve)
	require.NoError(t, t1.Queue())
	require.NoError(t, t2.Queue())
	require.NoError(t, q.Enqueue(t1))
	require.NoError(t, q.Enqueue(t2))

	ready := q.GetReadyTasks()
	require.Len(t, ready, 1)
	assert.Equal(t, t1.ID, ready[0].ID)

	require.NoError(t, t1.Assign("a"))
	require.NoError(t, t1.Start(now))
	require.NoError(t, t1.Complete(nil, now))

	ready = q.GetReadyTasks()
	require.Len(t, ready, 1)
	assert.Equal(t, t2.ID, ready[0].ID)
}

func TestQueue_StrictPriorityFIFOWithinLevel(t *testing.T) {
	now := time.Now()
	resolve := func(id.TaskID) (Status, bool) { return "", false }
	q := NewQueue(0, resolve)

	low := New("low", "", "", PriorityLow, now)
	crit1 := New("crit1", "", "", PriorityCritical, now)
	normal := New("normal", "", "", PriorityNormal, now)
	crit2 := New("crit2", "", "", PriorityCritical, now)

	for _, tk := range []*Task{low, crit1, normal, crit2} {
		require.NoError(t, tk.Queue())
		require.NoError(t, q.Enqueue(tk))
	}

	first := q.Dequeue()
	second := q.Dequeue()
	assert.Equal(t, crit1.ID, first.ID)
	assert.Equal(t, crit2.ID, second.ID)

	third := q.Dequeue()
	assert.Equal(t, normal.ID, third.ID)
	fourth := q.Dequeue()
	assert.Equal(t, low.ID, fourth.ID)
}

func TestQueue_RejectsDuplicateAndFull(t *testing.T) {
	now := time.Now()
	resolve := func(id.TaskID) (Status, bool) { return "", false }
	q := NewQueue(1, resolve)

	tk := New("T", "", "", PriorityNormal, now)
	require.NoError(t, tk.Queue())
	require.NoError(t, q.Enqueue(tk))
	assert.Error(t, q.Enqueue(tk))

	other := New("T2", "", "", PriorityNormal, now)
	require.NoError(t, other.Queue())
	assert.Error(t, q.Enqueue(other))
}
