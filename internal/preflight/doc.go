// Package preflight provides readiness checks for the filesystem paths and
// catalog source the converter depends on.
//
// The CLI "pvc config validate" command runs RunAll after the configuration
// parses, and the coordinator logs failed checks at startup so a broken
// catalog path is visible before the first sync cycle.
package preflight
