package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plexconverter/internal/catalog"
	"plexconverter/internal/preflight"
	"plexconverter/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckDirectoryAccess("test", dir); !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}

	result := preflight.CheckDirectoryAccess("test", filepath.Join(dir, "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDirectoryAccess("test", file); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.db")

	result := preflight.CheckDatabase("db", path)
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable database, got %+v", result)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDatabase("db", path); !result.Passed {
		t.Fatalf("expected existing database to pass, got %s", result.Detail)
	}
	if result := preflight.CheckDatabase("db", dir); result.Passed {
		t.Fatal("expected directory path to fail")
	}
}

func TestCheckCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithYAMLCatalog())

	if result := preflight.CheckCatalog(context.Background(), cfg.Catalog); result.Passed {
		t.Fatal("expected missing catalog to fail")
	}

	testsupport.WriteCatalogYAML(t, cfg.Catalog.Path, []catalog.Entry{
		testsupport.Entry("/media/a.mkv", "h264", 1000, "2024-01-01"),
		testsupport.Entry("/media/b.mkv", "hevc", 2000, "2024-01-02"),
	})
	result := preflight.CheckCatalog(context.Background(), cfg.Catalog)
	if !result.Passed {
		t.Fatalf("expected catalog to pass, got %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "2 records") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}

	cfg.Catalog.Source = "csv"
	if result := preflight.CheckCatalog(context.Background(), cfg.Catalog); result.Passed {
		t.Fatal("expected unknown source to fail")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteCatalogDB(t, cfg.Catalog.Path, []catalog.Entry{
		testsupport.Entry("/media/a.mkv", "h264", 1000, "2024-01-01"),
	})

	results := preflight.RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	if err := os.Remove(cfg.Catalog.Path); err != nil {
		t.Fatal(err)
	}
	failed := preflight.Failed(preflight.RunAll(context.Background(), cfg))
	if len(failed) != 1 || !strings.HasPrefix(failed[0].Name, "Catalog") {
		t.Fatalf("expected only the catalog check to fail, got %+v", failed)
	}
}
