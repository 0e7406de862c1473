package testsupport

import (
	"path/filepath"
	"testing"

	"plexconverter/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.Database = filepath.Join(base, "data", "queue.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Catalog.Path = filepath.Join(base, "catalog.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithYAMLCatalog points the catalog at a YAML snapshot inside the temp dir.
func WithYAMLCatalog() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.Source = config.CatalogSourceYAML
		b.cfg.Catalog.Path = filepath.Join(b.baseDir, "catalog.yaml")
	}
}

// WithReclaimStale enables coordinator reclaiming with the given threshold in seconds.
func WithReclaimStale(staleAfter int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Coordinator.ReclaimStale = true
		b.cfg.Workers.StaleAfter = staleAfter
	}
}
