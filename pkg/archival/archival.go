// Package archival implements the retention sweep (spec.md §4.18): a
// scheduled pass that prunes terminal tasks, spend records, and
// consensus decisions once they age past their configured retention
// window, so the hot database (A8) does not grow unbounded.
package archival

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/swarmruntime/core/pkg/clock"
	"github.com/swarmruntime/core/pkg/config"
)

// TaskPruner prunes terminal tasks older than cutoff from the hot
// repository. Satisfied by pkg/database.TaskRepository plus a thin
// driver-specific "delete terminal tasks completed before cutoff"
// query, or by any other durable task store.
type TaskPruner interface {
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LogPruner prunes rows recorded before a cutoff timestamp formatted
// with the store's own time layout. pkg/database.SpendStore and
// pkg/database.ConsensusStore both satisfy this.
type LogPruner interface {
	DeleteBefore(ctx context.Context, cutoff string) (int64, error)
}

// timeLayout matches pkg/database's stored timestamp format, since
// LogPruner implementations compare against it as a string cutoff.
const timeLayout = time.RFC3339Nano

// Service periodically enforces spec.md §4.18's retention policy. All
// sweeps are idempotent and safe to run from multiple processes: a
// sweep that finds nothing to prune is a no-op.
type Service struct {
	cfg    *config.RetentionConfig
	clock  clock.Clock
	tasks  TaskPruner
	spend  LogPruner
	consensus LogPruner

	cron *cron.Cron
	id   cron.EntryID
}

// NewService creates a Service that sweeps on cfg.CleanupInterval.
// Any of tasks/spend/consensus may be nil, in which case that sweep is
// skipped — useful for deployments running pkg/task's MemoryRepository
// instead of the SQL-backed stores.
func NewService(cfg *config.RetentionConfig, c clock.Clock, tasks TaskPruner, spend, consensus LogPruner) *Service {
	return &Service{cfg: cfg, clock: c, tasks: tasks, spend: spend, consensus: consensus, cron: cron.New()}
}

// intervalSchedule turns cfg.CleanupInterval into a cron.Schedule,
// since the retention config is expressed as a Go duration rather than
// a cron expression; cron.Every is the standard adapter for that.
func (s *Service) schedule() cron.Schedule {
	return cron.Every(s.cfg.CleanupInterval)
}

// Start runs one sweep immediately and schedules subsequent sweeps on
// cfg.CleanupInterval until ctx is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) {
	s.runAll(ctx)
	s.id = s.cron.Schedule(s.schedule(), cron.FuncJob(func() { s.runAll(ctx) }))
	s.cron.Start()
	slog.Info("archival sweep started",
		"task_retention_days", s.cfg.TaskRetentionDays,
		"spend_log_retention_days", s.cfg.SpendLogRetentionDays,
		"consensus_log_retention_days", s.cfg.ConsensusLogRetentionDays,
		"interval", s.cfg.CleanupInterval)
}

// Stop halts the scheduler and waits for an in-flight sweep to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Service) runAll(ctx context.Context) {
	s.pruneTasks(ctx)
	s.pruneSpendLog(ctx)
	s.pruneConsensusLog(ctx)
}

func (s *Service) pruneTasks(ctx context.Context) {
	if s.tasks == nil {
		return
	}
	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.TaskRetentionDays)
	n, err := s.tasks.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		slog.Error("archival: task prune failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("archival: pruned terminal tasks", "count", n)
	}
}

func (s *Service) pruneSpendLog(ctx context.Context) {
	if s.spend == nil {
		return
	}
	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.SpendLogRetentionDays).Format(timeLayout)
	n, err := s.spend.DeleteBefore(ctx, cutoff)
	if err != nil {
		slog.Error("archival: spend log prune failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("archival: pruned spend records", "count", n)
	}
}

func (s *Service) pruneConsensusLog(ctx context.Context) {
	if s.consensus == nil {
		return
	}
	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.ConsensusLogRetentionDays).Format(timeLayout)
	n, err := s.consensus.DeleteBefore(ctx, cutoff)
	if err != nil {
		slog.Error("archival: consensus log prune failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("archival: pruned consensus decisions", "count", n)
	}
}
