package catalog

import (
	"database/sql"
	"strconv"
	"strings"

	"plexconverter/internal/queue"
)

// Entry is one crawler record. Field names follow the crawler's columns.
type Entry struct {
	FileName        string  `yaml:"file_name"`
	FilePath        string  `yaml:"file_path"`
	FileSize        int64   `yaml:"file_size"`
	FileModified    string  `yaml:"file_modified"`
	LastScanned     string  `yaml:"last_scanned"`
	TopFolder       string  `yaml:"top_folder"`
	VideoCodec      string  `yaml:"video_codec"`
	Resolution      string  `yaml:"resolution"`
	Duration        float64 `yaml:"duration"`
	VideoBitrate    int64   `yaml:"video_bitrate"`
	AudioCodec      string  `yaml:"audio_codec"`
	AudioChannels   int64   `yaml:"audio_channels"`
	AudioSampleRate int64   `yaml:"audio_sample_rate"`
	AudioLanguages  string  `yaml:"audio_languages"`
	FileFormat      string  `yaml:"file_format"`
}

// Candidate maps the record onto queue columns.
func (e Entry) Candidate() queue.Candidate {
	return queue.Candidate{
		FileName:        e.FileName,
		FilePath:        e.FilePath,
		FileSize:        e.FileSize,
		LastModified:    e.FileModified,
		ScanDate:        e.LastScanned,
		StorageLocation: e.TopFolder,
		VideoCodec:      e.VideoCodec,
		Resolution:      e.Resolution,
		Duration:        sql.NullFloat64{Float64: e.Duration, Valid: e.Duration != 0},
		BitRate:         sql.NullInt64{Int64: e.VideoBitrate, Valid: e.VideoBitrate != 0},
		AudioCodec:      e.AudioCodec,
		AudioChannels:   sql.NullInt64{Int64: e.AudioChannels, Valid: e.AudioChannels != 0},
		SampleRate:      sql.NullInt64{Int64: e.AudioSampleRate, Valid: e.AudioSampleRate != 0},
		Language:        e.AudioLanguages,
		ContainerFormat: e.FileFormat,
	}
}

// Crawler columns are loosely typed, so numbers may arrive as text or reals.
func parseInt(value sql.NullString) int64 {
	s := strings.TrimSpace(value.String)
	if !value.Valid || s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseFloat(value sql.NullString) float64 {
	s := strings.TrimSpace(value.String)
	if !value.Valid || s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
