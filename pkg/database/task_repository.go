package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/id"
	"github.com/swarmruntime/core/pkg/task"
)

// TaskRepository is the SQL-backed task.Repository implementation
// (spec.md §4.5), the durable counterpart to task.MemoryRepository for
// multi-process deployments.
type TaskRepository struct {
	db     *sql.DB
	driver Driver
}

// NewTaskRepository wraps client's connection pool as a task.Repository.
func NewTaskRepository(client *Client) *TaskRepository {
	return &TaskRepository{db: client.db, driver: client.driver}
}

var _ task.Repository = (*TaskRepository)(nil)

// q rebinds query's "?" placeholders for r.driver.
func (r *TaskRepository) q(query string) string { return rebind(r.driver, query) }

const taskColumns = `id, title, description, type, status, priority, assigned_agent_id,
	input_json, output_json, error_message, blocked_by_json, blocks_json,
	created_at, started_at, completed_at, retry_count, max_retries, timeout_ms, metadata_json`

func (r *TaskRepository) Save(ctx context.Context, t *task.Task) error {
	row, err := marshalTask(t)
	if err != nil {
		return errs.Wrap(errs.KindInvalidArgument, "marshal task", err)
	}

	_, err = r.db.ExecContext(ctx, r.q(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, description=excluded.description, type=excluded.type,
			status=excluded.status, priority=excluded.priority, assigned_agent_id=excluded.assigned_agent_id,
			input_json=excluded.input_json, output_json=excluded.output_json, error_message=excluded.error_message,
			blocked_by_json=excluded.blocked_by_json, blocks_json=excluded.blocks_json,
			started_at=excluded.started_at, completed_at=excluded.completed_at,
			retry_count=excluded.retry_count, max_retries=excluded.max_retries,
			timeout_ms=excluded.timeout_ms, metadata_json=excluded.metadata_json`),
		row.id, row.title, row.description, row.typ, row.status, row.priority, row.assignedAgentID,
		row.inputJSON, row.outputJSON, row.errorMessage, row.blockedByJSON, row.blocksJSON,
		row.createdAt, row.startedAt, row.completedAt, row.retryCount, row.maxRetries, row.timeoutMs, row.metadataJSON)
	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "save task", err)
	}
	return nil
}

func (r *TaskRepository) SaveMany(ctx context.Context, tasks []*task.Task) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "begin transaction", err)
	}
	for _, t := range tasks {
		row, err := marshalTask(t)
		if err != nil {
			_ = tx.Rollback()
			return errs.Wrap(errs.KindInvalidArgument, "marshal task", err)
		}
		_, err = tx.ExecContext(ctx, r.q(`
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
			ON CONFLICT(id) DO UPDATE SET
				title=excluded.title, description=excluded.description, type=excluded.type,
				status=excluded.status, priority=excluded.priority, assigned_agent_id=excluded.assigned_agent_id,
				input_json=excluded.input_json, output_json=excluded.output_json, error_message=excluded.error_message,
				blocked_by_json=excluded.blocked_by_json, blocks_json=excluded.blocks_json,
				started_at=excluded.started_at, completed_at=excluded.completed_at,
				retry_count=excluded.retry_count, max_retries=excluded.max_retries,
				timeout_ms=excluded.timeout_ms, metadata_json=excluded.metadata_json`),
			row.id, row.title, row.description, row.typ, row.status, row.priority, row.assignedAgentID,
			row.inputJSON, row.outputJSON, row.errorMessage, row.blockedByJSON, row.blocksJSON,
			row.createdAt, row.startedAt, row.completedAt, row.retryCount, row.maxRetries, row.timeoutMs, row.metadataJSON)
		if err != nil {
			_ = tx.Rollback()
			return errs.Wrap(errs.KindUnavailable, "save task", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindUnavailable, "commit transaction", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, tid id.TaskID) (*task.Task, error) {
	row := r.db.QueryRowContext(ctx, r.q(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), string(tid))
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.KindNotFound, "task not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "find task", err)
	}
	return t, nil
}

func (r *TaskRepository) FindByStatus(ctx context.Context, status task.Status) ([]*task.Task, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT `+taskColumns+` FROM tasks WHERE status = ?`), string(status))
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "find tasks by status", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *TaskRepository) FindByIDs(ctx context.Context, ids []id.TaskID) ([]*task.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]byte, 0, len(ids)*2)
	args := make([]any, len(ids))
	for i, tid := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = string(tid)
	}
	rows, err := r.db.QueryContext(ctx,
		r.q(fmt.Sprintf(`SELECT %s FROM tasks WHERE id IN (%s)`, taskColumns, placeholders)), args...)
	if err != nil {
		return nil, errs.Wrap(errs.KindUnavailable, "find tasks by ids", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *TaskRepository) Delete(ctx context.Context, tid id.TaskID) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM tasks WHERE id = ?`), string(tid))
	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "delete task", err)
	}
	if n == 0 {
		return errs.New(errs.KindNotFound, "task not found")
	}
	return nil
}

func (r *TaskRepository) Exists(ctx context.Context, tid id.TaskID) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(1) FROM tasks WHERE id = ?`), string(tid)).Scan(&exists)
	if err != nil {
		return false, errs.Wrap(errs.KindUnavailable, "check task existence", err)
	}
	return exists > 0, nil
}

func (r *TaskRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tasks`).Scan(&count); err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "count tasks", err)
	}
	return count, nil
}

func (r *TaskRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return errs.Wrap(errs.KindUnavailable, "clear tasks", err)
	}
	return nil
}

// DeleteTerminalBefore removes COMPLETED, FAILED, and CANCELLED tasks
// completed strictly before cutoff; used by the archival sweep
// (spec.md §4.18). Tasks without a completed_at (still pending/running)
// are never matched regardless of cutoff.
func (r *TaskRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.q(`
		DELETE FROM tasks
		WHERE status IN (?, ?, ?) AND completed_at IS NOT NULL AND completed_at < ?`),
		string(task.StatusCompleted), string(task.StatusFailed), string(task.StatusCancelled),
		cutoff.Format(timeLayout))
	if err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "delete terminal tasks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "delete terminal tasks", err)
	}
	return n, nil
}

func (r *TaskRepository) GetStatistics(ctx context.Context) (task.Stats, error) {
	stats := task.Stats{ByStatus: make(map[task.Status]int), ByPriority: make(map[task.Priority]int)}

	rows, err := r.db.QueryContext(ctx, `SELECT status, priority, COUNT(1) FROM tasks GROUP BY status, priority`)
	if err != nil {
		return stats, errs.Wrap(errs.KindUnavailable, "get task statistics", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var priority int
		var count int
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return stats, errs.Wrap(errs.KindUnavailable, "scan task statistics", err)
		}
		stats.Total += count
		stats.ByStatus[task.Status(status)] += count
		stats.ByPriority[task.Priority(priority)] += count
	}
	return stats, rows.Err()
}

// taskRow is the flattened, JSON-serialized form of task.Task stored in
// the tasks table.
type taskRow struct {
	id              string
	title           string
	description     string
	typ             string
	status          string
	priority        int
	assignedAgentID string
	inputJSON       sql.NullString
	outputJSON      sql.NullString
	errorMessage    sql.NullString
	blockedByJSON   string
	blocksJSON      string
	createdAt       string
	startedAt       sql.NullString
	completedAt     sql.NullString
	retryCount      int
	maxRetries      int
	timeoutMs       int64
	metadataJSON    string
}

func marshalTask(t *task.Task) (*taskRow, error) {
	inputJSON, err := marshalNullable(t.Input)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}
	outputJSON, err := marshalNullable(t.Output)
	if err != nil {
		return nil, fmt.Errorf("marshal output: %w", err)
	}
	blockedByJSON, err := json.Marshal(taskIDKeys(t.BlockedBy))
	if err != nil {
		return nil, fmt.Errorf("marshal blockedBy: %w", err)
	}
	blocksJSON, err := json.Marshal(taskIDKeys(t.Blocks))
	if err != nil {
		return nil, fmt.Errorf("marshal blocks: %w", err)
	}
	metadataJSON, err := json.Marshal(t.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	row := &taskRow{
		id:              string(t.ID),
		title:           t.Title,
		description:     t.Description,
		typ:             t.Type,
		status:          string(t.Status),
		priority:        int(t.Priority),
		assignedAgentID: t.AssignedAgentID,
		inputJSON:       inputJSON,
		outputJSON:      outputJSON,
		blockedByJSON:   string(blockedByJSON),
		blocksJSON:      string(blocksJSON),
		createdAt:       t.CreatedAt.Format(timeLayout),
		retryCount:      t.RetryCount,
		maxRetries:      t.MaxRetries,
		timeoutMs:       t.TimeoutMs,
		metadataJSON:    string(metadataJSON),
	}
	if t.Error != nil {
		row.errorMessage = sql.NullString{String: t.Error.Error(), Valid: true}
	}
	if t.StartedAt != nil {
		row.startedAt = sql.NullString{String: t.StartedAt.Format(timeLayout), Valid: true}
	}
	if t.CompletedAt != nil {
		row.completedAt = sql.NullString{String: t.CompletedAt.Format(timeLayout), Valid: true}
	}
	return row, nil
}

func marshalNullable(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func taskIDKeys(m map[id.TaskID]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, string(k))
	}
	return out
}
