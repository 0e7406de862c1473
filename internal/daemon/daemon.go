package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"plexconverter/internal/catalog"
	"plexconverter/internal/config"
	"plexconverter/internal/logging"
	"plexconverter/internal/queue"
	"plexconverter/internal/services"
)

// Daemon runs periodic coordination cycles and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	queue  *queue.Queue
	syncer *catalog.Syncer
	now    func() time.Time

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	locked  bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	last    atomic.Pointer[CycleResult]
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockFilePath string
	DatabasePath string
	LastCycle    *CycleResult
}

// CycleResult summarizes one coordination pass.
type CycleResult struct {
	StartedAt time.Time     `json:"started_at"`
	Inserted  int           `json:"inserted"`
	Estimated int           `json:"estimated"`
	Reclaimed int           `json:"reclaimed"`
	Duration  time.Duration `json:"duration"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, q *queue.Queue, syncer *catalog.Syncer, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || q == nil || syncer == nil {
		return nil, errors.New("daemon requires config, queue, and catalog syncer")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "coordinator"),
		queue:    q,
		syncer:   syncer,
		now:      time.Now,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// ErrAlreadyRunning reports that another coordinator holds the lock file.
var ErrAlreadyRunning = errors.New("another coordinator instance is already running")

// Acquire takes the single-instance lock without starting the loop. Callers
// that run cycles directly must hold it. Acquiring twice is a no-op.
func (d *Daemon) Acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquireLocked()
}

func (d *Daemon) acquireLocked() error {
	if d.locked {
		return nil
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	d.locked = true
	return nil
}

func (d *Daemon) releaseLocked() {
	if !d.locked {
		return
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release coordinator lock", "coordinator_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next coordinator start may report a running instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no coordinator is running"),
		)
	}
	d.locked = false
}

// Start acquires the lock if needed and launches the coordination loop. The
// first cycle runs immediately.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.acquireLocked(); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.running.Store(true)
	go d.loop(loopCtx, d.done)

	d.logger.Info("coordinator started",
		logging.String(logging.FieldEventType, "coordinator_started"),
		logging.String("lock", d.lockPath),
		logging.Duration("interval", d.cfg.SyncInterval()),
		logging.Bool("auto_sync", d.cfg.Coordinator.AutoSync),
		logging.Bool("reclaim_stale", d.cfg.Coordinator.ReclaimStale),
	)
	return nil
}

func (d *Daemon) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.cfg.SyncInterval())
	defer ticker.Stop()

	for {
		if _, err := d.RunCycle(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "coordination cycle failed", "coordinator_cycle_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "queue may miss new catalog files until the next cycle"),
				logging.String(logging.FieldErrorHint, "check catalog path and database access"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunCycle performs one coordination pass: incremental sync and backfill
// when auto sync is enabled, then stale job reclaiming when enabled.
func (d *Daemon) RunCycle(ctx context.Context) (CycleResult, error) {
	result := CycleResult{StartedAt: d.now()}
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, d.logger)
	var errs []error

	if d.cfg.Coordinator.AutoSync {
		inserted, err := d.syncer.SyncNew(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync catalog: %w", err))
		}
		result.Inserted = inserted
		estimated, err := d.syncer.Backfill(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("backfill estimates: %w", err))
		}
		result.Estimated = estimated
	}

	if d.cfg.Coordinator.ReclaimStale {
		reclaimed, err := d.queue.ReclaimStale(ctx, d.now().Add(-d.cfg.StaleAfter()))
		if err != nil {
			errs = append(errs, fmt.Errorf("reclaim stale jobs: %w", err))
		}
		result.Reclaimed = len(reclaimed.Jobs)
	}

	result.Duration = d.now().Sub(result.StartedAt)
	d.last.Store(&result)
	logger.Debug("coordination cycle finished",
		logging.String(logging.FieldEventType, "coordinator_cycle"),
		logging.Int("inserted", result.Inserted),
		logging.Int("estimated", result.Estimated),
		logging.Int("reclaimed", result.Reclaimed),
		logging.Duration("duration", result.Duration),
	)
	return result, errors.Join(errs...)
}

// Stop ends the loop, waits for the running cycle, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	d.releaseLocked()
	d.running.Store(false)
	d.logger.Info("coordinator stopped", logging.String(logging.FieldEventType, "coordinator_stopped"))
}

// Close stops the daemon and releases the lock.
func (d *Daemon) Close() error {
	d.Stop()
	d.mu.Lock()
	d.releaseLocked()
	d.mu.Unlock()
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		DatabasePath: d.cfg.Paths.Database,
		LastCycle:    d.last.Load(),
	}
}
