// Package queue persists conversion candidates in the shared SQLite database
// and implements the ordering and assignment protocol workers use.
//
// A job moves pending -> queued -> processing -> completed. Queued and
// processing jobs hold a position; the non-NULL positions are always exactly
// 1..N. Every operation that removes a job from the ordered set calls the
// same compaction routine inside its transaction, so readers never observe
// gaps or duplicates.
//
// ClaimNext is a single conditional UPDATE ... RETURNING executed inside a
// write-locked transaction: two workers polling at once can never receive the
// same job.
//
// Completed rows stay in the table so savings can be aggregated.
package queue
