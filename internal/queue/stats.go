package queue

import "context"

// Stats returns a count of jobs grouped by status.
func (q *Queue) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT job_status, COUNT(1) FROM conversion_queue GROUP BY job_status`)
	if err != nil {
		return nil, wrapStorage("stats", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, wrapStorage("stats", err)
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage("stats", err)
	}
	return stats, nil
}

// AggregateSaved sums estimated savings over completed jobs.
func (q *Queue) AggregateSaved(ctx context.Context) (int64, error) {
	return q.sumSaved(ctx, StatusCompleted)
}

// AggregatePendingEstimate sums estimated savings over pending jobs.
func (q *Queue) AggregatePendingEstimate(ctx context.Context) (int64, error) {
	return q.sumSaved(ctx, StatusPending)
}

func (q *Queue) sumSaved(ctx context.Context, status Status) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(space_saved), 0) FROM conversion_queue WHERE job_status = ?`, status,
	).Scan(&total)
	if err != nil {
		return 0, wrapStorage("sum saved "+string(status), err)
	}
	return total, nil
}

// Summary aggregates counts and savings.
func (q *Queue) Summary(ctx context.Context) (Summary, error) {
	counts, err := q.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Counts: counts}
	for _, count := range counts {
		summary.Total += count
	}
	if summary.Saved, err = q.AggregateSaved(ctx); err != nil {
		return Summary{}, err
	}
	if summary.PendingEstimate, err = q.AggregatePendingEstimate(ctx); err != nil {
		return Summary{}, err
	}
	if err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversion_queue WHERE estimated_size IS NULL`,
	).Scan(&summary.Unestimated); err != nil {
		return Summary{}, wrapStorage("summary", err)
	}
	return summary, nil
}
