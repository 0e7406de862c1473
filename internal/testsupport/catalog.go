package testsupport

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"plexconverter/internal/catalog"
)

const fileRecordsSchema = `CREATE TABLE IF NOT EXISTS FileRecords (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_name TEXT,
    file_path TEXT UNIQUE,
    file_size INTEGER,
    file_modified TEXT,
    last_scanned TEXT,
    top_folder TEXT,
    video_codec TEXT,
    resolution TEXT,
    duration REAL,
    video_bitrate INTEGER,
    audio_codec TEXT,
    audio_channels INTEGER,
    audio_sample_rate INTEGER,
    audio_languages TEXT,
    file_format TEXT
)`

// Entry returns a catalog record with plausible metadata for path.
func Entry(path, codec string, size int64, modified string) catalog.Entry {
	return catalog.Entry{
		FileName:        filepath.Base(path),
		FilePath:        path,
		FileSize:        size,
		FileModified:    modified,
		LastScanned:     "2024-01-02 03:04:05",
		TopFolder:       "Movies",
		VideoCodec:      codec,
		Resolution:      "1920x1080",
		Duration:        5400,
		VideoBitrate:    8_000_000,
		AudioCodec:      "aac",
		AudioChannels:   2,
		AudioSampleRate: 48000,
		AudioLanguages:  "eng",
		FileFormat:      "matroska",
	}
}

// WriteCatalogDB creates a crawler database at path holding entries. A
// missing top folder is stored as NULL.
func WriteCatalogDB(t testing.TB, path string, entries []catalog.Entry) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open catalog db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(fileRecordsSchema); err != nil {
		t.Fatalf("create FileRecords: %v", err)
	}
	for _, e := range entries {
		var folder any
		if e.TopFolder != "" {
			folder = e.TopFolder
		}
		if _, err := db.Exec(`INSERT INTO FileRecords (
                file_name, file_path, file_size, file_modified, last_scanned, top_folder,
                video_codec, resolution, duration, video_bitrate, audio_codec, audio_channels,
                audio_sample_rate, audio_languages, file_format
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(file_path) DO UPDATE SET
                file_size = excluded.file_size,
                file_modified = excluded.file_modified,
                video_codec = excluded.video_codec`,
			e.FileName, e.FilePath, e.FileSize, e.FileModified, e.LastScanned, folder,
			e.VideoCodec, e.Resolution, e.Duration, e.VideoBitrate, e.AudioCodec, e.AudioChannels,
			e.AudioSampleRate, e.AudioLanguages, e.FileFormat,
		); err != nil {
			t.Fatalf("insert catalog row %s: %v", e.FilePath, err)
		}
	}
}

// WriteCatalogYAML writes entries as a YAML snapshot at path.
func WriteCatalogYAML(t testing.TB, path string, entries []catalog.Entry) {
	t.Helper()

	if err := catalog.WriteYAML(path, entries); err != nil {
		t.Fatalf("write catalog yaml: %v", err)
	}
}
