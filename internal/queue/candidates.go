package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"plexconverter/internal/logging"
	"plexconverter/internal/store"
)

// defaultStorageLocation fills storage_location when the catalog has none.
const defaultStorageLocation = "Unknown"

// Candidate is the catalog-provided metadata for a new job. Estimates are
// filled later by SetEstimates.
type Candidate struct {
	FileName        string
	FilePath        string
	FileSize        int64
	LastModified    string
	ScanDate        string
	StorageLocation string
	VideoCodec      string
	Resolution      string
	Duration        sql.NullFloat64
	BitRate         sql.NullInt64
	AudioCodec      string
	AudioChannels   sql.NullInt64
	SampleRate      sql.NullInt64
	Language        string
	ContainerFormat string
}

// EstimateUpdate carries computed sizes for one job.
type EstimateUpdate struct {
	ID            int64
	EstimatedSize int64
	SpaceSaved    int64
}

// SyncCandidates inserts candidates whose path is not yet known and returns
// how many rows were added. With replace set, every existing job is deleted
// first; both steps share one transaction so a failure keeps the old table.
func (q *Queue) SyncCandidates(ctx context.Context, candidates []Candidate, replace bool) (int, error) {
	var inserted int
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		if replace {
			if _, err := tx.ExecContext(ctx, `DELETE FROM conversion_queue`); err != nil {
				return fmt.Errorf("clear queue: %w", err)
			}
		}
		if len(candidates) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO conversion_queue (
                 file_name, file_path, file_size, last_modified, scan_date, storage_location,
                 video_codec, resolution, duration, bit_rate, audio_codec, audio_channels,
                 sample_rate, language, container_format, original_size, estimated_size,
                 space_saved, job_status, queue_position, creation_date, modification_date
             ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?, NULL, ?, ?)
             ON CONFLICT(file_path) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		now := q.timestamp()
		for _, c := range candidates {
			path := strings.TrimSpace(c.FilePath)
			if path == "" {
				continue
			}
			size := c.FileSize
			if size < 0 {
				size = 0
			}
			location := strings.TrimSpace(c.StorageLocation)
			if location == "" {
				location = defaultStorageLocation
			}
			res, err := stmt.ExecContext(ctx,
				c.FileName, path, size,
				store.NullableString(c.LastModified),
				store.NullableString(c.ScanDate),
				location,
				store.NullableString(c.VideoCodec),
				store.NullableString(c.Resolution),
				store.NullableFloat64(c.Duration),
				store.NullableInt64(c.BitRate),
				store.NullableString(c.AudioCodec),
				store.NullableInt64(c.AudioChannels),
				store.NullableInt64(c.SampleRate),
				store.NullableString(c.Language),
				store.NullableString(c.ContainerFormat),
				size,
				StatusPending, now, now,
			)
			if err != nil {
				return fmt.Errorf("insert %q: %w", path, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("insert %q: %w", path, err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		op := "sync"
		if replace {
			op = "resync"
		}
		return 0, wrapStorage(op, err)
	}

	q.log(ctx).Info("catalog candidates stored",
		logging.String(logging.FieldEventType, "candidates_synced"),
		logging.Bool("replace", replace),
		logging.Int("requested", len(candidates)),
		logging.Int("inserted", inserted),
	)
	return inserted, nil
}

// Unestimated returns jobs that have a video codec but no size estimate yet.
func (q *Queue) Unestimated(ctx context.Context) ([]*Job, error) {
	rows, err := q.db.QueryContext(ctx,
		jobSelect+` WHERE q.estimated_size IS NULL AND TRIM(COALESCE(q.video_codec, '')) <> '' ORDER BY q.id ASC`)
	if err != nil {
		return nil, wrapStorage("unestimated", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, wrapStorage("unestimated", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage("unestimated", err)
	}
	return jobs, nil
}

// SetEstimates writes every update in one transaction. Rows that already
// carry an estimate are left untouched, so repeated runs change nothing.
func (q *Queue) SetEstimates(ctx context.Context, updates []EstimateUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	var updated int
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		updated = 0
		stmt, err := tx.PrepareContext(ctx,
			`UPDATE conversion_queue SET estimated_size = ?, space_saved = ?
             WHERE id = ? AND estimated_size IS NULL`)
		if err != nil {
			return fmt.Errorf("prepare estimate update: %w", err)
		}
		defer stmt.Close()
		for _, u := range updates {
			res, err := stmt.ExecContext(ctx, u.EstimatedSize, u.SpaceSaved, u.ID)
			if err != nil {
				return fmt.Errorf("update estimate for job %d: %w", u.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("update estimate for job %d: %w", u.ID, err)
			}
			updated += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, wrapStorage("backfill", err)
	}
	q.log(ctx).Info("size estimates stored",
		logging.String(logging.FieldEventType, "estimates_backfilled"),
		logging.Int("updated", updated),
	)
	return updated, nil
}

// PruneCodecs deletes pending and queued jobs whose video codec matches
// excluded, then compacts the remaining positions. Processing and completed
// jobs are kept so savings accounting stays intact. It returns the removed
// paths in id order.
func (q *Queue) PruneCodecs(ctx context.Context, excluded func(codec string) bool) ([]string, error) {
	if excluded == nil {
		return nil, nil
	}
	var removed []string
	err := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		removed = nil
		rows, err := tx.QueryContext(ctx,
			`SELECT id, file_path, COALESCE(video_codec, '') FROM conversion_queue
             WHERE job_status IN (?, ?) ORDER BY id ASC`,
			StatusPending, StatusQueued,
		)
		if err != nil {
			return fmt.Errorf("read prune candidates: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var (
				id    int64
				path  string
				codec string
			)
			if err := rows.Scan(&id, &path, &codec); err != nil {
				rows.Close()
				return fmt.Errorf("scan prune candidate: %w", err)
			}
			if excluded(codec) {
				ids = append(ids, id)
				removed = append(removed, path)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate prune candidates: %w", err)
		}
		rows.Close()
		if len(ids) == 0 {
			return nil
		}

		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM conversion_queue WHERE id IN (`+store.Placeholders(len(ids))+`)`, args...,
		); err != nil {
			return fmt.Errorf("delete excluded jobs: %w", err)
		}
		return compactPositions(ctx, tx)
	})
	if err != nil {
		return nil, wrapStorage("prune", err)
	}
	if len(removed) > 0 {
		q.log(ctx).Info("excluded codec jobs removed",
			logging.String(logging.FieldEventType, "jobs_pruned"),
			logging.Int("removed", len(removed)),
		)
	}
	return removed, nil
}
