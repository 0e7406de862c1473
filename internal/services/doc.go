// Package services defines shared utilities consumed by the queue, worker
// registry, catalog sync, and CLI layers.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, worker IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures as not-found, invalid input, conflict, or storage errors.
package services
