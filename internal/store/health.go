package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Health captures diagnostic information about the shared database.
type Health struct {
	Path           string
	Exists         bool
	Readable       bool
	SchemaVersion  int
	MissingTables  []string
	MissingColumns map[string][]string
	IntegrityOK    bool
	Error          string
}

// Healthy reports whether every check passed.
func (h Health) Healthy() bool {
	return h.Exists && h.Readable && h.SchemaVersion == SchemaVersion &&
		len(h.MissingTables) == 0 && len(h.MissingColumns) == 0 && h.IntegrityOK
}

var expectedColumns = map[string][]string{
	QueueTable: {
		"id", "file_name", "file_path", "file_size", "last_modified", "scan_date",
		"storage_location", "video_codec", "resolution", "duration", "bit_rate",
		"audio_codec", "audio_channels", "sample_rate", "language", "container_format",
		"original_size", "estimated_size", "space_saved", "job_status", "queue_position",
		"processing_worker_id", "creation_date", "modification_date",
	},
	WorkersTable: {
		"worker_id", "hostname", "ip_address", "os_type", "cpu", "ram_bytes",
		"status", "last_checkin", "created_at",
	},
}

// CheckHealth returns diagnostic information about the database file, its
// schema, and SQLite's integrity check.
func (d *DB) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{Path: d.Path(), MissingColumns: map[string][]string{}}
	if health.Path == "" {
		return health, errors.New("database path is unknown")
	}

	info, err := os.Stat(health.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("database path %q is a directory", health.Path)
	}
	health.Exists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 5*time.Second)
	defer cancel()

	if err := d.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.Readable = true

	if health.SchemaVersion, err = d.schemaVersion(connCtx); err != nil {
		health.Error = err.Error()
		return health, err
	}

	tables := make([]string, 0, len(expectedColumns))
	for table := range expectedColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		columns, err := d.tableColumns(connCtx, table)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		if len(columns) == 0 {
			health.MissingTables = append(health.MissingTables, table)
			continue
		}
		for _, col := range expectedColumns[table] {
			if _, ok := columns[col]; !ok {
				health.MissingColumns[table] = append(health.MissingColumns[table], col)
			}
		}
	}

	var integrity string
	if err := d.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityOK = strings.EqualFold(integrity, "ok")
	return health, nil
}

func (d *DB) tableColumns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		columns[name] = struct{}{}
	}
	return columns, rows.Err()
}
