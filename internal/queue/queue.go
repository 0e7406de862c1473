package queue

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"plexconverter/internal/logging"
	"plexconverter/internal/store"
)

// Queue is the job queue store and assignment protocol over the shared database.
type Queue struct {
	db     *store.DB
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Queue.
type Option func(*Queue)

// WithClock overrides the time source used for modification timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// New returns a Queue bound to db.
func New(db *store.DB, logger *slog.Logger, opts ...Option) *Queue {
	q := &Queue{
		db:     db,
		logger: logging.NewComponentLogger(logger, "queue"),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

func (q *Queue) timestamp() string {
	return store.Timestamp(q.now())
}

func (q *Queue) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, q.logger)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
