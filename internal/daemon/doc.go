// Package daemon runs the background coordinator for the conversion queue.
//
// The coordinator holds a flock-based lock so only one instance runs per data
// directory. On every tick it pulls new catalog files into the queue and
// backfills size estimates; when configured it also reclaims jobs from
// workers that stopped checking in. Workers and operators never depend on
// the daemon: every queue operation is safe to call without it.
package daemon
