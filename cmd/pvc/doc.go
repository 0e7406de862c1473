// Command pvc manages the Plex video conversion queue.
//
// Operators use it to sync the crawler catalog, order jobs, and inspect
// workers. Encoding machines use it to register, claim jobs, and report
// completion. `pvc daemon` runs the background coordinator.
package main
