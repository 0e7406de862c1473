package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeEstimator()
	c.normalizeWorkers()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if value, ok := os.LookupEnv("PVC_DATABASE"); ok && strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = filepath.Join(c.Paths.DataDir, defaultDatabaseName)
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	c.Catalog.Source = strings.ToLower(strings.TrimSpace(c.Catalog.Source))
	if c.Catalog.Source == "" {
		c.Catalog.Source = defaultCatalogSource
	}
	if value, ok := os.LookupEnv("PVC_CATALOG_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Catalog.Path = strings.TrimSpace(value)
	}
	var err error
	if c.Catalog.Path, err = expandPath(strings.TrimSpace(c.Catalog.Path)); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	c.Catalog.Table = strings.TrimSpace(c.Catalog.Table)
	if c.Catalog.Table == "" {
		c.Catalog.Table = DefaultCatalogTable
	}
	return nil
}

func (c *Config) normalizeEstimator() {
	codecs := make([]string, 0, len(c.Estimator.ExcludedCodecs))
	seen := make(map[string]struct{}, len(c.Estimator.ExcludedCodecs))
	for _, codec := range c.Estimator.ExcludedCodecs {
		codec = strings.ToLower(strings.TrimSpace(codec))
		if codec == "" {
			continue
		}
		if _, ok := seen[codec]; ok {
			continue
		}
		seen[codec] = struct{}{}
		codecs = append(codecs, codec)
	}
	c.Estimator.ExcludedCodecs = codecs

	if len(c.Estimator.Compression) > 0 {
		table := make(map[string]float64, len(c.Estimator.Compression))
		for codec, factor := range c.Estimator.Compression {
			table[strings.ToLower(strings.TrimSpace(codec))] = factor
		}
		c.Estimator.Compression = table
	}
}

func (c *Config) normalizeWorkers() {
	addrs := make([]string, 0, len(c.Workers.ExcludedAddresses))
	for _, addr := range c.Workers.ExcludedAddresses {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	c.Workers.ExcludedAddresses = addrs
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
