package config

import (
	"errors"
	"fmt"
	"net"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateEstimator(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateCoordinator(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.Database == "" {
		return errors.New("paths.database must be set")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Source {
	case CatalogSourceSQLite, CatalogSourceYAML:
	default:
		return fmt.Errorf("catalog.source: unsupported value %q (want %q or %q)", c.Catalog.Source, CatalogSourceSQLite, CatalogSourceYAML)
	}
	if c.Catalog.Path == "" {
		return errors.New("catalog.path must be set")
	}
	return nil
}

func (c *Config) validateEstimator() error {
	codecs := make([]string, 0, len(c.Estimator.Compression))
	for codec := range c.Estimator.Compression {
		codecs = append(codecs, codec)
	}
	sort.Strings(codecs)
	for _, codec := range codecs {
		if codec == "" {
			return errors.New("estimator.compression: codec name must not be empty")
		}
		factor := c.Estimator.Compression[codec]
		if factor < 0 || factor >= maxCompressionFactor {
			return fmt.Errorf("estimator.compression.%s must be in [0, 1), got %v", codec, factor)
		}
	}
	return nil
}

func (c *Config) validateWorkers() error {
	for _, addr := range c.Workers.ExcludedAddresses {
		if net.ParseIP(addr) == nil {
			return fmt.Errorf("workers.excluded_addresses: %q is not an IP address", addr)
		}
	}
	if c.Workers.StaleAfter <= 0 {
		return errors.New("workers.stale_after must be positive")
	}
	return nil
}

func (c *Config) validateCoordinator() error {
	if c.Coordinator.SyncInterval <= 0 {
		return errors.New("coordinator.sync_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
