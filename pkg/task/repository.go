package task

import (
	"context"
	"sync"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/id"
)

// Repository is the durable task store from spec.md §4.5. save is
// atomic per task; saveMany is all-or-nothing.
type Repository interface {
	Save(ctx context.Context, t *Task) error
	SaveMany(ctx context.Context, tasks []*Task) error
	FindByID(ctx context.Context, tid id.TaskID) (*Task, error)
	FindByStatus(ctx context.Context, status Status) ([]*Task, error)
	FindByIDs(ctx context.Context, ids []id.TaskID) ([]*Task, error)
	Delete(ctx context.Context, tid id.TaskID) error
	Exists(ctx context.Context, tid id.TaskID) (bool, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	GetStatistics(ctx context.Context) (Stats, error)
}

// MemoryRepository is an in-memory Repository, the default for tests
// and single-process deployments; pkg/database provides a SQL-backed
// implementation for durable multi-process deployments.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[id.TaskID]*Task
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tasks: make(map[id.TaskID]*Task)}
}

func (r *MemoryRepository) Save(_ context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *MemoryRepository) SaveMany(_ context.Context, tasks []*Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := make(map[id.TaskID]*Task, len(tasks))
	for _, t := range tasks {
		cp := *t
		staged[t.ID] = &cp
	}
	for tid, t := range staged {
		r.tasks[tid] = t
	}
	return nil
}

func (r *MemoryRepository) FindByID(_ context.Context, tid id.TaskID) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[tid]
	if !ok {
		return nil, errs.New(errs.KindNotFound, "task not found")
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) FindByStatus(_ context.Context, status Status) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Task
	for _, t := range r.tasks {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) FindByIDs(_ context.Context, ids []id.TaskID) ([]*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Task, 0, len(ids))
	for _, tid := range ids {
		if t, ok := r.tasks[tid]; ok {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, tid id.TaskID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[tid]; !ok {
		return errs.New(errs.KindNotFound, "task not found")
	}
	delete(r.tasks, tid)
	return nil
}

func (r *MemoryRepository) Exists(_ context.Context, tid id.TaskID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[tid]
	return ok, nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks), nil
}

func (r *MemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = make(map[id.TaskID]*Task)
	return nil
}

func (r *MemoryRepository) GetStatistics(_ context.Context) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{ByStatus: make(map[Status]int), ByPriority: make(map[Priority]int)}
	for _, t := range r.tasks {
		s.Total++
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++
	}
	return s, nil
}
