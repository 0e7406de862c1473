package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"plexconverter/internal/logging"
	"plexconverter/internal/services"
	"plexconverter/internal/store"
)

// Enqueue moves the named jobs into the ordered queue. Paths are
// de-duplicated keeping the first occurrence, and caller order decides their
// relative positions. Jobs that are already queued are detached and placed
// again, which is how a job is reprioritised. Processing and completed jobs
// are reported as ineligible and left alone. An empty batch is a no-op.
func (q *Queue) Enqueue(ctx context.Context, paths []string, mode Mode) (BatchResult, error) {
	if mode != ModeAppend && mode != ModePriority {
		return BatchResult{}, services.Wrap(services.ErrValidation, "queue", "enqueue", fmt.Sprintf("unknown mode %d", mode), nil)
	}
	paths = dedupePaths(paths)
	if len(paths) == 0 {
		return BatchResult{}, nil
	}

	var result BatchResult
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		result = BatchResult{Results: make([]PathResult, len(paths))}
		now := q.timestamp()

		var (
			eligible []int
			ids      = make([]int64, len(paths))
			detach   []int64
		)
		for i, path := range paths {
			result.Results[i].Path = path
			id, status, err := lookupPath(ctx, tx, path)
			if err != nil {
				return err
			}
			switch {
			case id == 0:
				result.Results[i].Outcome = OutcomeNotFound
			case status == StatusPending:
				ids[i] = id
				eligible = append(eligible, i)
			case status == StatusQueued:
				ids[i] = id
				eligible = append(eligible, i)
				detach = append(detach, id)
			default:
				result.Results[i].Outcome = OutcomeIneligible
				result.Results[i].Status = status
			}
		}
		if len(eligible) == 0 {
			return nil
		}

		if len(detach) > 0 {
			if err := clearPositions(ctx, tx, detach); err != nil {
				return err
			}
			if err := compactPositions(ctx, tx); err != nil {
				return err
			}
		}

		start, err := reserveSlots(ctx, tx, mode, len(eligible))
		if err != nil {
			return err
		}
		for k, idx := range eligible {
			position := start + int64(k)
			if _, err := tx.ExecContext(ctx,
				`UPDATE conversion_queue SET job_status = ?, queue_position = ?, modification_date = ? WHERE id = ?`,
				StatusQueued, position, now, ids[idx],
			); err != nil {
				return fmt.Errorf("assign queue position: %w", err)
			}
			result.Results[idx].Outcome = OutcomeQueued
			result.Results[idx].Status = StatusQueued
			result.Results[idx].Position = position
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, wrapStorage("enqueue", err)
	}

	q.log(ctx).Info("jobs enqueued",
		logging.String(logging.FieldEventType, "jobs_enqueued"),
		logging.String("mode", mode.String()),
		logging.Int("requested", len(paths)),
		logging.Int("queued", result.Count(OutcomeQueued)),
		logging.Int("not_found", result.Count(OutcomeNotFound)),
		logging.Int("ineligible", result.Count(OutcomeIneligible)),
	)
	return result, nil
}

// Dequeue returns the named queued jobs to pending and closes the gaps they
// leave. Jobs in any other state are reported as ineligible.
func (q *Queue) Dequeue(ctx context.Context, paths []string) (BatchResult, error) {
	paths = dedupePaths(paths)
	if len(paths) == 0 {
		return BatchResult{}, nil
	}

	var result BatchResult
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		result = BatchResult{Results: make([]PathResult, len(paths))}
		now := q.timestamp()

		var removed []int64
		for i, path := range paths {
			result.Results[i].Path = path
			id, status, err := lookupPath(ctx, tx, path)
			if err != nil {
				return err
			}
			switch {
			case id == 0:
				result.Results[i].Outcome = OutcomeNotFound
			case status == StatusQueued:
				removed = append(removed, id)
				result.Results[i].Outcome = OutcomeDequeued
				result.Results[i].Status = StatusPending
			default:
				result.Results[i].Outcome = OutcomeIneligible
				result.Results[i].Status = status
			}
		}
		if len(removed) == 0 {
			return nil
		}

		args := make([]any, 0, len(removed)+2)
		args = append(args, StatusPending, now)
		for _, id := range removed {
			args = append(args, id)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversion_queue SET job_status = ?, queue_position = NULL, modification_date = ?
             WHERE id IN (`+store.Placeholders(len(removed))+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("dequeue jobs: %w", err)
		}
		return compactPositions(ctx, tx)
	})
	if err != nil {
		return BatchResult{}, wrapStorage("dequeue", err)
	}

	q.log(ctx).Info("jobs dequeued",
		logging.String(logging.FieldEventType, "jobs_dequeued"),
		logging.Int("requested", len(paths)),
		logging.Int("dequeued", result.Count(OutcomeDequeued)),
		logging.Int("not_found", result.Count(OutcomeNotFound)),
		logging.Int("ineligible", result.Count(OutcomeIneligible)),
	)
	return result, nil
}

// lookupPath returns id 0 when no job has path.
func lookupPath(ctx context.Context, tx *sql.Tx, path string) (int64, Status, error) {
	var (
		id     int64
		status Status
	)
	err := tx.QueryRowContext(ctx, `SELECT id, job_status FROM conversion_queue WHERE file_path = ?`, path).Scan(&id, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("lookup %q: %w", path, err)
	}
	return id, status, nil
}

func clearPositions(ctx context.Context, tx *sql.Tx, ids []int64) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversion_queue SET queue_position = NULL WHERE id IN (`+store.Placeholders(len(ids))+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("detach queued jobs: %w", err)
	}
	return nil
}

// reserveSlots makes room for n jobs and returns the first position to assign.
// Append mode starts after the current maximum. Priority mode shifts every
// positioned job back by n and starts at the previous minimum.
func reserveSlots(ctx context.Context, tx *sql.Tx, mode Mode, n int) (int64, error) {
	switch mode {
	case ModePriority:
		var minPos sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MIN(queue_position) FROM conversion_queue WHERE queue_position IS NOT NULL`,
		).Scan(&minPos); err != nil {
			return 0, fmt.Errorf("read first position: %w", err)
		}
		if !minPos.Valid {
			return 1, nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversion_queue SET queue_position = queue_position + ? WHERE queue_position IS NOT NULL`, n,
		); err != nil {
			return 0, fmt.Errorf("shift queue positions: %w", err)
		}
		return minPos.Int64, nil
	default:
		var maxPos int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(queue_position), 0) FROM conversion_queue`,
		).Scan(&maxPos); err != nil {
			return 0, fmt.Errorf("read last position: %w", err)
		}
		return maxPos + 1, nil
	}
}

// compactPositions renumbers every positioned job to 1..N, preserving order.
// It is the single routine that restores contiguity after a job leaves the
// ordered set.
func compactPositions(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, queue_position FROM conversion_queue
         WHERE queue_position IS NOT NULL
         ORDER BY queue_position ASC, id ASC`,
	)
	if err != nil {
		return fmt.Errorf("read queue positions: %w", err)
	}
	type slot struct {
		id       int64
		position int64
	}
	var slots []slot
	for rows.Next() {
		var s slot
		if err := rows.Scan(&s.id, &s.position); err != nil {
			rows.Close()
			return fmt.Errorf("scan queue position: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate queue positions: %w", err)
	}
	rows.Close()

	for i, s := range slots {
		want := int64(i + 1)
		if s.position == want {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversion_queue SET queue_position = ? WHERE id = ?`, want, s.id,
		); err != nil {
			return fmt.Errorf("compact queue position: %w", err)
		}
	}
	return nil
}

func dedupePaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}
