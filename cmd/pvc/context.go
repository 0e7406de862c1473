package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"plexconverter/internal/catalog"
	"plexconverter/internal/config"
	"plexconverter/internal/estimate"
	"plexconverter/internal/logging"
	"plexconverter/internal/queue"
	"plexconverter/internal/store"
	"plexconverter/internal/workers"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// app bundles the components a command needs, bound to one database handle.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *store.DB
	queue    *queue.Queue
	registry *workers.Registry
}

func (a *app) syncer() (*catalog.Syncer, error) {
	source, err := catalog.NewSource(a.cfg.Catalog)
	if err != nil {
		return nil, err
	}
	return catalog.NewSyncer(a.queue, source, a.estimator(), a.logger), nil
}

func (a *app) estimator() *estimate.Estimator {
	return estimate.New(
		estimate.WithFactors(a.cfg.Estimator.Compression),
		estimate.WithExcluded(a.cfg.Estimator.ExcludedCodecs),
	)
}

// withApp opens the queue database for the duration of fn. Console logging
// is limited to warnings so command output stays readable; the log file
// receives everything at the configured level.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(context.Context, *app) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	opts := logging.OptionsFromConfig(cfg)
	opts.ConsoleLevel = "warn"
	logger, err := logging.New(opts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := store.Open(ctx, cfg.Paths.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		queue:    queue.New(db, logger),
		registry: workers.New(db, logger, workers.WithExcludedAddresses(cfg.Workers.ExcludedAddresses)),
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
