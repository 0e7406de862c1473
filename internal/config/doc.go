// Package config loads, normalizes, and validates converter configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PVC_DATABASE and PVC_CATALOG_PATH. The Config type centralizes the queue
// database location, catalog source, estimator table, worker filters, and
// coordinator cadence so the CLI and daemon discover them in one pass.
package config
