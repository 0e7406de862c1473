package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"plexconverter/internal/config"
	"plexconverter/internal/fileutil"
	"plexconverter/internal/services"
	"plexconverter/internal/store"
)

// Source yields the current catalog records.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// NewSource builds the source selected by cfg.
func NewSource(cfg config.Catalog) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case config.CatalogSourceSQLite, "":
		return &SQLiteSource{Path: cfg.Path, Table: cfg.Table}, nil
	case config.CatalogSourceYAML:
		return &YAMLSource{Path: cfg.Path}, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "source", fmt.Sprintf("unsupported source %q", cfg.Source), nil)
	}
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads the crawler database without writing to it.
type SQLiteSource struct {
	Path  string
	Table string
}

// Entries returns every record in the crawler table.
func (s *SQLiteSource) Entries(ctx context.Context) ([]Entry, error) {
	table := strings.TrimSpace(s.Table)
	if table == "" {
		table = config.DefaultCatalogTable
	}
	if !tableName.MatchString(table) {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "read", fmt.Sprintf("invalid table name %q", table), nil)
	}
	if _, err := os.Stat(s.Path); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "read", "catalog database unavailable", err)
	}

	db, err := store.OpenReadOnly(s.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "catalog", "open", "", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT file_name, file_path, file_size, file_modified, last_scanned,
        top_folder, video_codec, resolution, duration, video_bitrate, audio_codec,
        audio_channels, audio_sample_rate, audio_languages, file_format
        FROM `+table)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "catalog", "read", "", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			name, path, size, modified, scanned, folder, video, resolution sql.NullString
			duration, bitrate, audio, channels, rate, languages, format     sql.NullString
		)
		if err := rows.Scan(&name, &path, &size, &modified, &scanned, &folder, &video, &resolution,
			&duration, &bitrate, &audio, &channels, &rate, &languages, &format); err != nil {
			return nil, services.Wrap(services.ErrStorage, "catalog", "read", "", err)
		}
		if strings.TrimSpace(path.String) == "" {
			continue
		}
		entries = append(entries, Entry{
			FileName:        name.String,
			FilePath:        path.String,
			FileSize:        parseInt(size),
			FileModified:    modified.String,
			LastScanned:     scanned.String,
			TopFolder:       folder.String,
			VideoCodec:      video.String,
			Resolution:      resolution.String,
			Duration:        parseFloat(duration),
			VideoBitrate:    parseInt(bitrate),
			AudioCodec:      audio.String,
			AudioChannels:   parseInt(channels),
			AudioSampleRate: parseInt(rate),
			AudioLanguages:  languages.String,
			FileFormat:      format.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "catalog", "read", "", err)
	}
	return entries, nil
}

// YAMLSource reads a snapshot file with a top-level records list.
type YAMLSource struct {
	Path string
}

type yamlSnapshot struct {
	Records []Entry `yaml:"records"`
}

// Entries decodes the snapshot file.
func (s *YAMLSource) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "catalog", "read", "catalog snapshot not found", err)
		}
		return nil, services.Wrap(services.ErrStorage, "catalog", "read", "", err)
	}
	var snapshot yamlSnapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "parse", s.Path, err)
	}
	entries := snapshot.Records[:0]
	for _, entry := range snapshot.Records {
		if strings.TrimSpace(entry.FilePath) == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// WriteYAML writes entries in the format YAMLSource reads.
func WriteYAML(path string, entries []Entry) error {
	data, err := yaml.Marshal(yamlSnapshot{Records: entries})
	if err != nil {
		return fmt.Errorf("encode catalog snapshot: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
