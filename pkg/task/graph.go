package task

import (
	"sync"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/id"
)

// Graph is the dependency DAG from spec.md §4.5: nodes are task IDs,
// edges point from a task to the tasks it blocks.
type Graph struct {
	mu        sync.RWMutex
	blockedBy map[id.TaskID]map[id.TaskID]struct{} // task -> its blockers
	blocks    map[id.TaskID]map[id.TaskID]struct{} // task -> tasks it blocks
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		blockedBy: make(map[id.TaskID]map[id.TaskID]struct{}),
		blocks:    make(map[id.TaskID]map[id.TaskID]struct{}),
	}
}

func (g *Graph) ensure(tid id.TaskID) {
	if _, ok := g.blockedBy[tid]; !ok {
		g.blockedBy[tid] = make(map[id.TaskID]struct{})
	}
	if _, ok := g.blocks[tid]; !ok {
		g.blocks[tid] = make(map[id.TaskID]struct{})
	}
}

// AddTask registers tid in the graph with the given blockedBy set,
// rejecting any edge that would introduce a cycle.
func (g *Graph) AddTask(tid id.TaskID, blockedBy []id.TaskID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensure(tid)

	for _, blocker := range blockedBy {
		g.ensure(blocker)
		g.blockedBy[tid][blocker] = struct{}{}
		g.blocks[blocker][tid] = struct{}{}
	}

	if g.hasCycleLocked() {
		// Roll back: this task's edges are the only ones that could
		// have introduced a cycle since the rest of the graph was
		// already acyclic.
		for _, blocker := range blockedBy {
			delete(g.blockedBy[tid], blocker)
			delete(g.blocks[blocker], tid)
		}
		return errs.New(errs.KindInvalidArgument, "adding task would introduce a cycle")
	}
	return nil
}

// RemoveTask removes tid and cleans up inverse edges on both sides.
func (g *Graph) RemoveTask(tid id.TaskID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for blocker := range g.blockedBy[tid] {
		delete(g.blocks[blocker], tid)
	}
	for blocked := range g.blocks[tid] {
		delete(g.blockedBy[blocked], tid)
	}
	delete(g.blockedBy, tid)
	delete(g.blocks, tid)
}

// GetDependencies returns the set of tasks tid is blocked by.
func (g *Graph) GetDependencies(tid id.TaskID) []id.TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return keys(g.blockedBy[tid])
}

// GetDependents returns the set of tasks that depend on tid.
func (g *Graph) GetDependents(tid id.TaskID) []id.TaskID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return keys(g.blocks[tid])
}

// HasCycle reports whether the graph currently contains a cycle.
func (g *Graph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// color states for DFS cycle detection.
const (
	white = iota
	gray
	black
)

func (g *Graph) hasCycleLocked() bool {
	colors := make(map[id.TaskID]int, len(g.blockedBy))
	var visit func(id.TaskID) bool
	visit = func(n id.TaskID) bool {
		colors[n] = gray
		for next := range g.blocks[n] {
			switch colors[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		colors[n] = black
		return false
	}
	for n := range g.blockedBy {
		if colors[n] == white {
			if visit(n) {
				return true
			}
		}
	}
	return false
}

// TopologicalSort returns every task in dependency order, or an error
// if the graph is cyclic.
func (g *Graph) TopologicalSort() ([]id.TaskID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[id.TaskID]int, len(g.blockedBy))
	for n := range g.blockedBy {
		inDegree[n] = len(g.blockedBy[n])
	}

	var queue []id.TaskID
	for n, d := range inDegree {
		if d == 0 {
			queue = append(queue, n)
		}
	}

	var order []id.TaskID
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for dependent := range g.blocks[n] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(g.blockedBy) {
		return nil, errs.New(errs.KindInvalidArgument, "CycleDetected")
	}
	return order, nil
}

// GetExecutionLevels runs Kahn's algorithm level-by-level: every task
// in level k can execute in parallel once every task in level k-1 has
// completed.
func (g *Graph) GetExecutionLevels() ([][]id.TaskID, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[id.TaskID]int, len(g.blockedBy))
	for n := range g.blockedBy {
		inDegree[n] = len(g.blockedBy[n])
	}

	var levels [][]id.TaskID
	remaining := len(inDegree)
	for remaining > 0 {
		var level []id.TaskID
		for n, d := range inDegree {
			if d == 0 {
				level = append(level, n)
			}
		}
		if len(level) == 0 {
			return nil, errs.New(errs.KindInvalidArgument, "CycleDetected")
		}
		for _, n := range level {
			delete(inDegree, n)
			remaining--
			for dependent := range g.blocks[n] {
				if _, ok := inDegree[dependent]; ok {
					inDegree[dependent]--
				}
			}
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func keys(m map[id.TaskID]struct{}) []id.TaskID {
	out := make([]id.TaskID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
