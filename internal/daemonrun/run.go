package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"plexconverter/internal/catalog"
	"plexconverter/internal/config"
	"plexconverter/internal/daemon"
	"plexconverter/internal/estimate"
	"plexconverter/internal/fileutil"
	"plexconverter/internal/logging"
	"plexconverter/internal/preflight"
	"plexconverter/internal/queue"
	"plexconverter/internal/store"
)

// Options configures coordinator process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Once runs a single coordination cycle and exits.
	Once bool
}

// Run starts the coordinator and blocks until a signal or cmdCtx ends it.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loggerOpts := logging.OptionsFromConfig(cfg)
	if opts.LogLevel != "" {
		loggerOpts.Level = opts.LogLevel
	}
	loggerOpts.Development = opts.Development
	baseLogger, err := logging.New(loggerOpts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger := logging.WithRunID(baseLogger, uuid.NewString())

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "coordination cycles may fail until the check passes"),
			logging.String(logging.FieldErrorHint, "run pvc config validate"),
		)
	}

	db, err := store.Open(signalCtx, cfg.Paths.Database)
	if err != nil {
		logging.ErrorWithContext(logger, "open queue database", "database_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.database and file permissions"),
		)
		return err
	}
	defer db.Close()

	d, err := newDaemon(cfg, db, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.Acquire(); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() { _ = fileutil.RemoveIfExists(pidPath) }()

	if opts.Once {
		result, err := d.RunCycle(signalCtx)
		logger.Info("coordination cycle complete",
			logging.String(logging.FieldEventType, "coordinator_once"),
			logging.Int("inserted", result.Inserted),
			logging.Int("estimated", result.Estimated),
			logging.Int("reclaimed", result.Reclaimed),
		)
		return err
	}

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}
	<-signalCtx.Done()
	logger.Info("coordinator shutting down", logging.String(logging.FieldEventType, "coordinator_shutdown"))
	return nil
}

func newDaemon(cfg *config.Config, db *store.DB, logger *slog.Logger) (*daemon.Daemon, error) {
	q := queue.New(db, logger)
	source, err := catalog.NewSource(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	estimator := estimate.New(
		estimate.WithFactors(cfg.Estimator.Compression),
		estimate.WithExcluded(cfg.Estimator.ExcludedCodecs),
	)
	syncer := catalog.NewSyncer(q, source, estimator, logger)
	d, err := daemon.New(cfg, q, syncer, logger)
	if err != nil {
		return nil, fmt.Errorf("create coordinator: %w", err)
	}
	return d, nil
}

// PIDPath returns the coordinator pid file location.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "pvcd.pid")
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return fileutil.WriteFileAtomic(path, []byte(value), 0o644)
}
