package daemonrun_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"plexconverter/internal/catalog"
	"plexconverter/internal/config"
	"plexconverter/internal/daemon"
	"plexconverter/internal/daemonrun"
	"plexconverter/internal/logging"
	"plexconverter/internal/queue"
	"plexconverter/internal/testsupport"
)

func newRunConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"
	testsupport.WriteCatalogDB(t, cfg.Catalog.Path, []catalog.Entry{
		testsupport.Entry("/media/a.mkv", "h264", 1000, "2024-01-01"),
		testsupport.Entry("/media/b.mkv", "mpeg4", 2000, "2024-01-01"),
	})
	return cfg
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(path); err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s was not created", path)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSecondRunLeavesRunningCoordinatorIntact(t *testing.T) {
	cfg := newRunConfig(t)
	pidPath := daemonrun.PIDPath(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- daemonrun.Run(ctx, cfg, daemonrun.Options{})
	}()
	waitForFile(t, pidPath)

	err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{})
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("second Run error = %v, want ErrAlreadyRunning", err)
	}
	if _, err := os.Stat(pidPath); err != nil {
		t.Fatalf("pid file removed by refused start: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{Once: true})
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("single cycle while running: error = %v, want ErrAlreadyRunning", err)
	}
	if _, err := os.Stat(pidPath); err != nil {
		t.Fatalf("pid file removed by refused single cycle: %v", err)
	}

	cancel()
	select {
	case err := <-firstDone:
		if err != nil {
			t.Fatalf("first Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first Run did not stop")
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("pid file should be removed on shutdown, stat err = %v", err)
	}
}

func TestRunOnceSyncsCatalog(t *testing.T) {
	cfg := newRunConfig(t)

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{Once: true}); err != nil {
		t.Fatalf("Run once: %v", err)
	}
	if _, err := os.Stat(daemonrun.PIDPath(cfg)); !os.IsNotExist(err) {
		t.Fatalf("pid file should be removed after a single cycle, stat err = %v", err)
	}

	db := testsupport.MustOpenDB(t, cfg)
	jobs, err := queue.New(db, logging.NewNop()).List(context.Background(), queue.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 synced jobs, got %d", len(jobs))
	}
	for _, job := range jobs {
		if job.EstimatedSize == nil {
			t.Fatalf("job %s has no estimate", job.FilePath)
		}
	}
}
