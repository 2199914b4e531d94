package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swarmruntime/core/pkg/id"
	"github.com/swarmruntime/core/pkg/task"
)

const timeLayout = time.RFC3339Nano

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*task.Task, error) {
	var row taskRow
	err := s.Scan(
		&row.id, &row.title, &row.description, &row.typ, &row.status, &row.priority, &row.assignedAgentID,
		&row.inputJSON, &row.outputJSON, &row.errorMessage, &row.blockedByJSON, &row.blocksJSON,
		&row.createdAt, &row.startedAt, &row.completedAt, &row.retryCount, &row.maxRetries, &row.timeoutMs, &row.metadataJSON)
	if err != nil {
		return nil, err
	}
	return unmarshalTask(&row)
}

func scanTasks(rows *sql.Rows) ([]*task.Task, error) {
	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func unmarshalTask(row *taskRow) (*task.Task, error) {
	createdAt, err := time.Parse(timeLayout, row.createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	t := &task.Task{
		ID:              id.TaskID(row.id),
		Title:           row.title,
		Description:     row.description,
		Type:            row.typ,
		Status:          task.Status(row.status),
		Priority:        task.Priority(row.priority),
		AssignedAgentID: row.assignedAgentID,
		CreatedAt:       createdAt,
		RetryCount:      row.retryCount,
		MaxRetries:      row.maxRetries,
		TimeoutMs:       row.timeoutMs,
	}

	if row.inputJSON.Valid {
		if err := json.Unmarshal([]byte(row.inputJSON.String), &t.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
	}
	if row.outputJSON.Valid {
		if err := json.Unmarshal([]byte(row.outputJSON.String), &t.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
	}
	if row.errorMessage.Valid {
		t.Error = errors.New(row.errorMessage.String)
	}
	if row.startedAt.Valid {
		startedAt, err := time.Parse(timeLayout, row.startedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		t.StartedAt = &startedAt
	}
	if row.completedAt.Valid {
		completedAt, err := time.Parse(timeLayout, row.completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		t.CompletedAt = &completedAt
	}

	t.BlockedBy, err = unmarshalTaskIDSet(row.blockedByJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshal blockedBy: %w", err)
	}
	t.Blocks, err = unmarshalTaskIDSet(row.blocksJSON)
	if err != nil {
		return nil, fmt.Errorf("unmarshal blocks: %w", err)
	}

	if row.metadataJSON != "" {
		if err := json.Unmarshal([]byte(row.metadataJSON), &t.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return t, nil
}

func unmarshalTaskIDSet(data string) (map[id.TaskID]struct{}, error) {
	out := make(map[id.TaskID]struct{})
	if data == "" {
		return out, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, err
	}
	for _, s := range ids {
		out[id.TaskID(s)] = struct{}{}
	}
	return out, nil
}
