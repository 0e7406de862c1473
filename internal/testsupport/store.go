package testsupport

import (
	"context"
	"testing"

	"plexconverter/internal/config"
	"plexconverter/internal/store"
	"plexconverter/internal/workers"
)

// MustOpenDB opens the queue database named by cfg and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *store.DB {
	t.Helper()

	db, err := store.Open(context.Background(), cfg.Paths.Database)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// MustRegisterWorker registers a worker and fails the test if it is rejected.
func MustRegisterWorker(t testing.TB, reg *workers.Registry, hostname, ip string) *workers.Worker {
	t.Helper()

	worker, err := reg.Register(context.Background(), workers.Info{
		Hostname:  hostname,
		IPAddress: ip,
		OSType:    "Linux 6.1",
		CPU:       "test cpu",
		RAMBytes:  8 << 30,
	})
	if err != nil {
		t.Fatalf("Register(%s, %s): %v", hostname, ip, err)
	}
	if worker == nil {
		t.Fatalf("Register(%s, %s) returned no worker", hostname, ip)
	}
	return worker
}
