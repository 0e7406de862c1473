// Package catalog reconciles the media crawler's file catalog with the
// conversion queue.
//
// The catalog is read-only. It is either the crawler's SQLite database
// (FileRecords table) or a YAML snapshot of the same records. A Syncer
// inserts new eligible files, rebuilds the queue on demand, and backfills
// size estimates for rows that lack them.
package catalog
