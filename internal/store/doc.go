// Package store owns the shared SQLite database that every coordinator and
// worker process opens.
//
// Open applies the connection pragmas (WAL journal, busy timeout, foreign
// keys, immediate transactions) to every pooled connection and creates or
// verifies the schema. WithTx is the only way multi-statement mutations reach
// the database: it begins a write-locked transaction, rolls back on any error,
// and retries the whole unit when SQLite reports the database as busy.
package store
