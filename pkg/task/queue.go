package task

import (
	"container/heap"
	"sync"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/id"
)

// Queue is the bounded priority queue of QUEUED tasks from spec.md
// §4.5: strict priority ordering, FIFO within a level, blocked tasks
// skipped on dequeue.
type Queue struct {
	mu       sync.Mutex
	maxSize  int
	resolve  func(id.TaskID) (Status, bool)
	heap     taskHeap
	index    map[id.TaskID]*taskEntry
	nextSeq  int64
}

type taskEntry struct {
	task *Task
	seq  int64
}

type taskHeap []*taskEntry

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*taskEntry)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// NewQueue creates a Queue. resolve answers "what status does this
// task ID currently have", used to determine blocked/ready; maxSize<=0
// means unbounded.
func NewQueue(maxSize int, resolve func(id.TaskID) (Status, bool)) *Queue {
	return &Queue{
		maxSize: maxSize,
		resolve: resolve,
		index:   make(map[id.TaskID]*taskEntry),
	}
}

// Enqueue adds t, rejecting duplicates and full queues.
func (q *Queue) Enqueue(t *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.index[t.ID]; exists {
		return errs.New(errs.KindAlreadyExists, "task already queued")
	}
	if q.maxSize > 0 && len(q.heap) >= q.maxSize {
		return errs.New(errs.KindQueueFull, "task queue at capacity")
	}

	e := &taskEntry{task: t, seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.heap, e)
	q.index[t.ID] = e
	return nil
}

// Dequeue returns the highest-priority ready (unblocked) task, or nil
// if none are ready.
func (q *Queue) Dequeue() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var skipped []*taskEntry
	var found *Task
	for len(q.heap) > 0 {
		e := heap.Pop(&q.heap).(*taskEntry)
		if e.task.Ready(q.resolve) {
			delete(q.index, e.task.ID)
			found = e.task
			break
		}
		skipped = append(skipped, e)
	}
	for _, e := range skipped {
		heap.Push(&q.heap, e)
	}
	return found
}

// Peek returns the highest-priority ready task without removing it.
func (q *Queue) Peek() *Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.heap {
		if e.task.Ready(q.resolve) {
			return e.task
		}
	}
	return nil
}

// GetReadyTasks returns every currently-ready task.
func (q *Queue) GetReadyTasks() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Task
	for _, e := range q.heap {
		if e.task.Ready(q.resolve) {
			out = append(out, e.task)
		}
	}
	return out
}

// GetBlockedTasks returns every currently-blocked task.
func (q *Queue) GetBlockedTasks() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Task
	for _, e := range q.heap {
		if !e.task.Ready(q.resolve) {
			out = append(out, e.task)
		}
	}
	return out
}

// GetByPriority returns queued tasks at the given priority level.
func (q *Queue) GetByPriority(p Priority) []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Task
	for _, e := range q.heap {
		if e.task.Priority == p {
			out = append(out, e.task)
		}
	}
	return out
}

// Remove removes a task from the queue by ID, e.g. on cancellation.
func (q *Queue) Remove(tid id.TaskID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.index[tid]
	if !ok {
		return false
	}
	for i, cur := range q.heap {
		if cur == e {
			heap.Remove(&q.heap, i)
			break
		}
	}
	delete(q.index, tid)
	return true
}

// Stats summarizes the queue's contents.
type Stats struct {
	Total     int
	ByStatus  map[Status]int
	ByPriority map[Priority]int
}

// Statistics returns totals and per-status/priority counts.
func (q *Queue) Statistics() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := Stats{ByStatus: make(map[Status]int), ByPriority: make(map[Priority]int)}
	for _, e := range q.heap {
		s.Total++
		s.ByStatus[e.task.Status]++
		s.ByPriority[e.task.Priority]++
	}
	return s
}

// Len returns the number of tasks currently in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
