package catalog

import (
	"context"
	"log/slog"
	"math"

	"plexconverter/internal/estimate"
	"plexconverter/internal/logging"
	"plexconverter/internal/queue"
)

// Syncer moves catalog records into the queue.
type Syncer struct {
	queue     *queue.Queue
	source    Source
	estimator *estimate.Estimator
	logger    *slog.Logger
}

// NewSyncer wires a syncer. A nil estimator uses the default tables.
func NewSyncer(q *queue.Queue, source Source, estimator *estimate.Estimator, logger *slog.Logger) *Syncer {
	if estimator == nil {
		estimator = estimate.New()
	}
	return &Syncer{
		queue:     q,
		source:    source,
		estimator: estimator,
		logger:    logging.NewComponentLogger(logger, "catalog"),
	}
}

// eligible returns the catalog entries whose codec may be converted.
func (s *Syncer) eligible(ctx context.Context) ([]Entry, error) {
	entries, err := s.source.Entries(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if s.estimator.Eligible(entry.VideoCodec) {
			kept = append(kept, entry)
		}
	}
	return kept, nil
}

// Changes diffs eligible catalog entries against the queue.
func (s *Syncer) Changes(ctx context.Context) (DiffResult, error) {
	entries, err := s.eligible(ctx)
	if err != nil {
		return DiffResult{}, err
	}
	known, err := s.queue.Snapshot(ctx)
	if err != nil {
		return DiffResult{}, err
	}
	diff := Diff(SnapshotOf(entries), Snapshot(known))
	s.logger.Debug("catalog diff computed",
		logging.String(logging.FieldEventType, "catalog_diff"),
		logging.Int("new", len(diff.New)),
		logging.Int("changed", len(diff.Changed)),
	)
	return diff, nil
}

// SyncNew inserts eligible entries whose path is not yet queued and returns
// the number inserted. Existing rows are never modified.
func (s *Syncer) SyncNew(ctx context.Context) (int, error) {
	return s.store(ctx, false)
}

// Resync replaces every queue row with the eligible catalog entries. Size
// estimates are left empty for Backfill.
func (s *Syncer) Resync(ctx context.Context) (int, error) {
	return s.store(ctx, true)
}

func (s *Syncer) store(ctx context.Context, replace bool) (int, error) {
	entries, err := s.eligible(ctx)
	if err != nil {
		return 0, err
	}
	candidates := make([]queue.Candidate, len(entries))
	for i, entry := range entries {
		candidates[i] = entry.Candidate()
	}
	inserted, err := s.queue.SyncCandidates(ctx, candidates, replace)
	if err != nil {
		return 0, err
	}
	event := "catalog_sync"
	if replace {
		event = "catalog_resync"
	}
	logging.WithContext(ctx, s.logger).Info("catalog synchronized",
		logging.String(logging.FieldEventType, event),
		logging.Int("eligible", len(entries)),
		logging.Int("inserted", inserted),
	)
	return inserted, nil
}

// Backfill removes pending and queued rows whose codec is now excluded, then
// computes size estimates for rows that have none. Running it again changes
// nothing.
func (s *Syncer) Backfill(ctx context.Context) (int, error) {
	if _, err := s.queue.PruneCodecs(ctx, s.estimator.IsExcluded); err != nil {
		return 0, err
	}
	jobs, err := s.queue.Unestimated(ctx)
	if err != nil {
		return 0, err
	}
	updates := make([]queue.EstimateUpdate, 0, len(jobs))
	for _, job := range jobs {
		if !s.estimator.Eligible(job.VideoCodec) || job.OriginalSize < 0 {
			continue
		}
		estimated, saved := s.estimator.Estimate(uint64(job.OriginalSize), job.VideoCodec)
		if estimated > math.MaxInt64 {
			continue
		}
		updates = append(updates, queue.EstimateUpdate{
			ID:            job.ID,
			EstimatedSize: int64(estimated),
			SpaceSaved:    int64(saved),
		})
	}
	updated, err := s.queue.SetEstimates(ctx, updates)
	if err != nil {
		return 0, err
	}
	logging.WithContext(ctx, s.logger).Info("size estimates backfilled",
		logging.String(logging.FieldEventType, "catalog_backfill"),
		logging.Int("candidates", len(jobs)),
		logging.Int("updated", updated),
	)
	return updated, nil
}
