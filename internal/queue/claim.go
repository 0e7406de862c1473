package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"plexconverter/internal/logging"
	"plexconverter/internal/services"
	"plexconverter/internal/store"
	"plexconverter/internal/workers"
)

// ClaimNext atomically assigns the queued job with the smallest position to
// workerID and marks the worker as processing. It returns nil, nil when no
// job is queued and workers.ErrWorkerNotFound when workerID is not
// registered. Concurrent callers never receive the same job.
func (q *Queue) ClaimNext(ctx context.Context, workerID string) (*Job, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "claim", "worker id is required", nil)
	}

	var claimed *Job
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		claimed = nil
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM worker_info WHERE worker_id = ?`, workerID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", workers.ErrWorkerNotFound, workerID)
		}
		if err != nil {
			return fmt.Errorf("check worker: %w", err)
		}

		now := q.timestamp()
		var id int64
		err = tx.QueryRowContext(ctx,
			`UPDATE conversion_queue
             SET job_status = ?, processing_worker_id = ?, modification_date = ?
             WHERE id = (
                 SELECT id FROM conversion_queue
                 WHERE job_status = ? AND queue_position IS NOT NULL
                 ORDER BY queue_position ASC, id ASC
                 LIMIT 1
             ) AND job_status = ?
             RETURNING id`,
			StatusProcessing, workerID, now, StatusQueued, StatusQueued,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE worker_info SET status = ?, last_checkin = ? WHERE worker_id = ?`,
			workers.StateProcessing, now, workerID,
		); err != nil {
			return fmt.Errorf("mark worker processing: %w", err)
		}

		claimed, err = getJob(ctx, tx, "q.id = ?", id)
		return err
	})
	if err != nil {
		return nil, wrapStorage("claim", err)
	}

	logger := q.log(services.WithWorkerID(ctx, workerID))
	if claimed == nil {
		logger.Debug("no queued job to claim", logging.String(logging.FieldEventType, "claim_empty"))
		return nil, nil
	}
	logger.Info("job claimed",
		logging.String(logging.FieldEventType, "job_claimed"),
		logging.Int64(logging.FieldJobID, claimed.ID),
		logging.String("file_path", claimed.FilePath),
		logging.Int64("position", claimed.Position),
	)
	return claimed, nil
}

// Complete marks a processing job as completed and removes it from the
// ordered set. The row is kept so its savings count toward AggregateSaved.
func (q *Queue) Complete(ctx context.Context, jobID int64) error {
	workerID, err := q.finish(ctx, jobID, StatusCompleted, "complete")
	if err != nil {
		return err
	}
	q.log(services.WithWorkerID(services.WithJobID(ctx, jobID), workerID)).Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
	)
	return nil
}

// Release returns a processing job to pending after a worker aborts it.
func (q *Queue) Release(ctx context.Context, jobID int64) error {
	workerID, err := q.finish(ctx, jobID, StatusPending, "release")
	if err != nil {
		return err
	}
	logging.WarnWithContext(q.log(services.WithWorkerID(services.WithJobID(ctx, jobID), workerID)),
		"job released", "job_released",
		logging.String(logging.FieldImpact, "job returned to pending and must be enqueued again"),
		logging.String(logging.FieldErrorHint, "check the worker's encoder output"),
	)
	return nil
}

// finish moves a processing job to target, clears its position and worker,
// compacts the queue, and frees the worker when it holds no other job.
func (q *Queue) finish(ctx context.Context, jobID int64, target Status, op string) (string, error) {
	var workerID string
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		workerID = ""
		var (
			status Status
			worker sql.NullString
		)
		err := tx.QueryRowContext(ctx,
			`SELECT job_status, processing_worker_id FROM conversion_queue WHERE id = ?`, jobID,
		).Scan(&status, &worker)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrJobNotFound, jobID)
		}
		if err != nil {
			return fmt.Errorf("read job: %w", err)
		}
		if status != StatusProcessing {
			return fmt.Errorf("%w: job %d is %s, not %s", ErrInvalidTransition, jobID, status, StatusProcessing)
		}
		workerID = worker.String

		now := q.timestamp()
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversion_queue
             SET job_status = ?, queue_position = NULL, processing_worker_id = NULL, modification_date = ?
             WHERE id = ?`,
			target, now, jobID,
		); err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if err := freeWorker(ctx, tx, workerID, now); err != nil {
			return err
		}
		return compactPositions(ctx, tx)
	})
	if err != nil {
		return "", wrapStorage(op, err)
	}
	return workerID, nil
}

// freeWorker sets a worker back to connected unless it still holds a job.
func freeWorker(ctx context.Context, tx execer, workerID, now string) error {
	if workerID == "" {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE worker_info SET status = ?, last_checkin = ?
         WHERE worker_id = ?
           AND NOT EXISTS (
               SELECT 1 FROM conversion_queue WHERE processing_worker_id = ? AND job_status = ?
           )`,
		workers.StateConnected, now, workerID, workerID, StatusProcessing,
	); err != nil {
		return fmt.Errorf("free worker: %w", err)
	}
	return nil
}

// ReclaimStale returns processing jobs to the queue when their worker is no
// longer registered or has not checked in since cutoff. Reclaimed jobs keep
// their position so they are claimed again first; stale workers are set back
// to connected. Nothing calls this implicitly.
func (q *Queue) ReclaimStale(ctx context.Context, cutoff time.Time) (ReclaimResult, error) {
	var result ReclaimResult
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		result = ReclaimResult{}
		rows, err := tx.QueryContext(ctx,
			`SELECT q.id, w.worker_id, w.last_checkin
             FROM conversion_queue q
             LEFT JOIN worker_info w ON w.worker_id = q.processing_worker_id
             WHERE q.job_status = ?
             ORDER BY q.queue_position ASC, q.id ASC`,
			StatusProcessing,
		)
		if err != nil {
			return fmt.Errorf("scan processing jobs: %w", err)
		}
		var stale []int64
		staleWorkers := make(map[string]struct{})
		for rows.Next() {
			var (
				id         int64
				registered sql.NullString
				checkin    sql.NullString
			)
			if err := rows.Scan(&id, &registered, &checkin); err != nil {
				rows.Close()
				return fmt.Errorf("scan processing job: %w", err)
			}
			if registered.Valid && !store.ParseTime(checkin.String).Before(cutoff) {
				continue
			}
			stale = append(stale, id)
			if registered.Valid {
				staleWorkers[registered.String] = struct{}{}
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate processing jobs: %w", err)
		}
		rows.Close()
		if len(stale) == 0 {
			return nil
		}

		now := q.timestamp()
		for _, id := range stale {
			if _, err := tx.ExecContext(ctx,
				`UPDATE conversion_queue
                 SET job_status = ?, processing_worker_id = NULL, modification_date = ?,
                     queue_position = COALESCE(queue_position, (SELECT COALESCE(MAX(queue_position), 0) + 1 FROM conversion_queue))
                 WHERE id = ? AND job_status = ?`,
				StatusQueued, now, id, StatusProcessing,
			); err != nil {
				return fmt.Errorf("requeue job %d: %w", id, err)
			}
			result.Jobs = append(result.Jobs, id)
		}
		for worker := range staleWorkers {
			result.Workers = append(result.Workers, worker)
		}
		sort.Strings(result.Workers)
		for _, worker := range result.Workers {
			if _, err := tx.ExecContext(ctx,
				`UPDATE worker_info SET status = ? WHERE worker_id = ? AND status = ?`,
				workers.StateConnected, worker, workers.StateProcessing,
			); err != nil {
				return fmt.Errorf("reset worker %s: %w", worker, err)
			}
		}
		return compactPositions(ctx, tx)
	})
	if err != nil {
		return ReclaimResult{}, wrapStorage("reclaim", err)
	}
	if len(result.Jobs) > 0 {
		logging.WarnWithContext(q.log(ctx), "reclaimed jobs from stale workers", "jobs_reclaimed",
			logging.Int("reclaimed", len(result.Jobs)),
			logging.Any("workers", result.Workers),
			logging.String(logging.FieldImpact, "jobs will be claimed again by the next polling worker"),
			logging.String(logging.FieldErrorHint, "check that the listed workers are still running"),
		)
	}
	return result, nil
}
