// Package workers tracks the encoding machines that poll the queue.
//
// A worker is identified by an opaque id generated the first time its
// (hostname, ip) pair registers. Later registrations from the same pair
// refresh capabilities and check-in time but keep the id, so a restarted
// machine resumes under its old identity.
package workers
