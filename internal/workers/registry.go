package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"plexconverter/internal/config"
	"plexconverter/internal/logging"
	"plexconverter/internal/services"
	"plexconverter/internal/store"
)

// Registry stores worker registrations in the shared database.
type Registry struct {
	db       *store.DB
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	excluded map[string]struct{}
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for check-ins.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithExcludedAddresses replaces the default excluded address set.
func WithExcludedAddresses(addrs []string) Option {
	return func(r *Registry) {
		r.excluded = addressSet(addrs)
	}
}

// New returns a Registry bound to db.
func New(db *store.DB, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		db:       db,
		logger:   logging.NewComponentLogger(logger, "workers"),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		excluded: addressSet(config.DefaultExcludedAddresses),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func addressSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		if ip := net.ParseIP(strings.TrimSpace(addr)); ip != nil {
			set[ip.String()] = struct{}{}
		}
	}
	return set
}

// IsExcluded reports whether addr is in the excluded set.
func (r *Registry) IsExcluded(addr string) bool {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil {
		return false
	}
	_, ok := r.excluded[ip.String()]
	return ok
}

// Register upserts the machine keyed by (hostname, ip). An existing pair
// keeps its id and is forced back to connected. Excluded addresses are
// ignored and yield nil, nil.
func (r *Registry) Register(ctx context.Context, info Info) (*Worker, error) {
	info.Hostname = strings.TrimSpace(info.Hostname)
	info.IPAddress = strings.TrimSpace(info.IPAddress)
	if info.Hostname == "" {
		return nil, services.Wrap(services.ErrValidation, "workers", "register", "hostname is required", nil)
	}
	if info.IPAddress == "" {
		return nil, services.Wrap(services.ErrValidation, "workers", "register", "ip address is required", nil)
	}
	if r.IsExcluded(info.IPAddress) {
		r.logger.Debug("ignoring registration from excluded address",
			logging.String(logging.FieldEventType, "worker_register_excluded"),
			logging.String("ip_address", info.IPAddress),
		)
		return nil, nil
	}

	now := store.Timestamp(r.now())
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO worker_info (worker_id, hostname, ip_address, os_type, cpu, ram_bytes, status, last_checkin, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(hostname, ip_address) DO UPDATE SET
             os_type = excluded.os_type,
             cpu = excluded.cpu,
             ram_bytes = excluded.ram_bytes,
             status = excluded.status,
             last_checkin = excluded.last_checkin
         RETURNING worker_id`,
		r.newID(), info.Hostname, info.IPAddress, info.OSType, info.CPU, int64(info.RAMBytes),
		StateConnected, now, now,
	).Scan(&id)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "workers", "register", "", err)
	}

	worker, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, services.Wrap(services.ErrStorage, "workers", "register", "registered worker vanished", nil)
	}
	logging.WithContext(services.WithWorkerID(ctx, worker.ID), r.logger).Info("worker registered",
		logging.String(logging.FieldEventType, "worker_registered"),
		logging.String("hostname", worker.Hostname),
		logging.String("ip_address", worker.IPAddress),
		logging.Uint64("ram_bytes", worker.RAMBytes),
	)
	return worker, nil
}

// SetStatus records a state report and refreshes the check-in time. An
// unknown id returns ErrWorkerNotFound so the caller can register again.
func (r *Registry) SetStatus(ctx context.Context, id string, state State) error {
	if _, ok := ParseState(string(state)); !ok {
		return services.Wrap(services.ErrValidation, "workers", "set status", fmt.Sprintf("unknown state %q", state), nil)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE worker_info SET status = ?, last_checkin = ? WHERE worker_id = ?`,
		state, store.Timestamp(r.now()), id,
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "workers", "set status", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStorage, "workers", "set status", "", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, id)
	}
	logging.WithContext(services.WithWorkerID(ctx, id), r.logger).Debug("worker status updated",
		logging.String(logging.FieldEventType, "worker_status"),
		logging.String("status", string(state)),
	)
	return nil
}

// Status returns the stored state and whether the worker exists.
func (r *Registry) Status(ctx context.Context, id string) (State, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM worker_info WHERE worker_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, services.Wrap(services.ErrStorage, "workers", "status", "", err)
	}
	state, ok := ParseState(raw)
	if !ok {
		state = State(raw)
	}
	return state, true, nil
}

const workerSelect = `SELECT worker_id, hostname, ip_address, os_type, cpu, ram_bytes, status, last_checkin, created_at FROM worker_info`

// Get returns the worker or nil when id is not registered.
func (r *Registry) Get(ctx context.Context, id string) (*Worker, error) {
	worker, err := scanWorker(r.db.QueryRowContext(ctx, workerSelect+` WHERE worker_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "workers", "get", "", err)
	}
	return worker, nil
}

// List returns every worker, most recent check-in first.
func (r *Registry) List(ctx context.Context) ([]*Worker, error) {
	rows, err := r.db.QueryContext(ctx, workerSelect+` ORDER BY last_checkin DESC, hostname ASC`)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "workers", "list", "", err)
	}
	defer rows.Close()

	var list []*Worker
	for rows.Next() {
		worker, err := scanWorker(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, "workers", "list", "", err)
		}
		list = append(list, worker)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "workers", "list", "", err)
	}
	return list, nil
}

// ClearAll removes every registration unless some worker is processing, in
// which case nothing is removed and Blocked carries the count.
func (r *Registry) ClearAll(ctx context.Context) (ClearResult, error) {
	var result ClearResult
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result = ClearResult{}
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM worker_info WHERE status = ?`, StateProcessing,
		).Scan(&result.Blocked); err != nil {
			return fmt.Errorf("count processing workers: %w", err)
		}
		if result.Blocked > 0 {
			return nil
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM worker_info`)
		if err != nil {
			return fmt.Errorf("delete workers: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete workers: %w", err)
		}
		result.Removed = int(removed)
		return nil
	})
	if err != nil {
		return ClearResult{}, services.Wrap(services.ErrStorage, "workers", "clear", "", err)
	}

	if result.Blocked > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "worker clear refused", "workers_clear_blocked",
			logging.Int("blocked", result.Blocked),
			logging.String(logging.FieldImpact, "no workers were removed"),
			logging.String(logging.FieldErrorHint, "wait for processing workers to finish"),
		)
		return result, nil
	}
	logging.WithContext(ctx, r.logger).Info("workers cleared",
		logging.String(logging.FieldEventType, "workers_cleared"),
		logging.Int("removed", result.Removed),
	)
	return result, nil
}

func scanWorker(scanner interface{ Scan(dest ...any) error }) (*Worker, error) {
	var (
		worker    Worker
		ram       int64
		state     string
		checkin   string
		createdAt string
	)
	if err := scanner.Scan(
		&worker.ID,
		&worker.Hostname,
		&worker.IPAddress,
		&worker.OSType,
		&worker.CPU,
		&ram,
		&state,
		&checkin,
		&createdAt,
	); err != nil {
		return nil, err
	}
	if ram > 0 {
		worker.RAMBytes = uint64(ram)
	}
	if parsed, ok := ParseState(state); ok {
		worker.State = parsed
	} else {
		worker.State = State(state)
	}
	worker.LastCheckin = store.ParseTime(checkin)
	worker.CreatedAt = store.ParseTime(createdAt)
	return &worker, nil
}
