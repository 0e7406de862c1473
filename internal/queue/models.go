package queue

import (
	"strings"
	"time"
)

// Status represents a job lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

var allStatuses = []Status{
	StatusPending,
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
}

// AllStatuses returns every lifecycle state in workflow order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status, ignoring case.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// HoldsPosition reports whether jobs in this state occupy a queue position.
func (s Status) HoldsPosition() bool {
	return s == StatusQueued || s == StatusProcessing
}

// Mode selects where Enqueue places incoming jobs.
type Mode int

const (
	// ModeAppend places jobs after the current last position.
	ModeAppend Mode = iota
	// ModePriority places jobs at the front, shifting everything else back.
	ModePriority
)

func (m Mode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModePriority:
		return "priority"
	default:
		return "unknown"
	}
}

// Job is one conversion candidate row.
type Job struct {
	ID              int64     `json:"id"`
	FileName        string    `json:"file_name"`
	FilePath        string    `json:"file_path"`
	FileSize        int64     `json:"file_size"`
	LastModified    string    `json:"last_modified,omitempty"`
	ScanDate        string    `json:"scan_date,omitempty"`
	StorageLocation string    `json:"storage_location"`
	VideoCodec      string    `json:"video_codec,omitempty"`
	Resolution      string    `json:"resolution,omitempty"`
	Duration        float64   `json:"duration,omitempty"`
	BitRate         int64     `json:"bit_rate,omitempty"`
	AudioCodec      string    `json:"audio_codec,omitempty"`
	AudioChannels   int64     `json:"audio_channels,omitempty"`
	SampleRate      int64     `json:"sample_rate,omitempty"`
	Language        string    `json:"language,omitempty"`
	ContainerFormat string    `json:"container_format,omitempty"`
	OriginalSize    int64     `json:"original_size"`
	EstimatedSize   *int64    `json:"estimated_size"`
	SpaceSaved      *int64    `json:"space_saved"`
	Status          Status    `json:"status"`
	Position        int64     `json:"position,omitempty"`
	WorkerID        string    `json:"worker_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Outcome describes what a batch operation did with one path.
type Outcome string

const (
	OutcomeQueued     Outcome = "queued"
	OutcomeDequeued   Outcome = "dequeued"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeIneligible Outcome = "ineligible"
)

// PathResult reports the per-path outcome of Enqueue or Dequeue.
type PathResult struct {
	Path     string  `json:"path"`
	Outcome  Outcome `json:"outcome"`
	Status   Status  `json:"status,omitempty"`
	Position int64   `json:"position,omitempty"`
}

// BatchResult lists per-path outcomes in caller order (after de-duplication).
type BatchResult struct {
	Results []PathResult `json:"results"`
}

// Count returns how many paths ended with outcome.
func (r BatchResult) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Filter narrows List results.
type Filter struct {
	Statuses []Status
	// Search matches file names or status text, case-insensitively.
	Search string
}

// Summary aggregates queue state for the dashboard and CLI status output.
type Summary struct {
	Counts          map[Status]int `json:"counts"`
	Total           int            `json:"total"`
	Unestimated     int            `json:"unestimated"`
	Saved           int64          `json:"saved_bytes"`
	PendingEstimate int64          `json:"pending_estimate_bytes"`
}

// ReclaimResult lists what ReclaimStale returned to the queue.
type ReclaimResult struct {
	Jobs    []int64  `json:"jobs"`
	Workers []string `json:"workers"`
}
