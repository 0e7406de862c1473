package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"plexconverter/internal/store"
)

// GetByID fetches a job by id. It returns nil, nil when no such job exists.
func (q *Queue) GetByID(ctx context.Context, id int64) (*Job, error) {
	return getJob(ctx, q.db, "q.id = ?", id)
}

// GetByPath fetches a job by file path. It returns nil, nil when absent.
func (q *Queue) GetByPath(ctx context.Context, path string) (*Job, error) {
	return getJob(ctx, q.db, "q.file_path = ?", path)
}

func getJob(ctx context.Context, db rowQuerier, where string, args ...any) (*Job, error) {
	row := db.QueryRowContext(ctx, jobSelect+" WHERE "+where, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs ordered by queue position, with unpositioned jobs last.
func (q *Queue) List(ctx context.Context, filter Filter) ([]*Job, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "q.job_status IN ("+store.Placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		clauses = append(clauses, "(LOWER(q.file_name) LIKE ? OR LOWER(q.file_path) LIKE ? OR q.job_status LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	query := jobSelect
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += listOrder

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Snapshot returns every job's file path mapped to its recorded last-modified
// value, for comparison against the source catalog.
func (q *Queue) Snapshot(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT file_path, COALESCE(last_modified, '') FROM conversion_queue`)
	if err != nil {
		return nil, fmt.Errorf("queue snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]string)
	for rows.Next() {
		var path, modified string
		if err := rows.Scan(&path, &modified); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snapshot[path] = modified
	}
	return snapshot, rows.Err()
}
