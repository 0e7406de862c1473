package workers

import (
	"fmt"
	"strings"
	"time"

	"plexconverter/internal/services"
)

// ErrWorkerNotFound is returned when a worker id is not registered.
var ErrWorkerNotFound = fmt.Errorf("%w: worker", services.ErrNotFound)

// State is the coarse availability reported by a worker.
type State string

const (
	StateConnected  State = "Connected"
	StateProcessing State = "Processing"
)

// ParseState accepts the stored text in any case.
func ParseState(value string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "connected":
		return StateConnected, true
	case "processing":
		return StateProcessing, true
	default:
		return "", false
	}
}

// IsProcessing reports whether the worker is busy with a job.
func (s State) IsProcessing() bool {
	return s == StateProcessing
}

// Info is what a machine reports about itself when registering.
type Info struct {
	Hostname  string `json:"hostname"`
	IPAddress string `json:"ip_address"`
	OSType    string `json:"os_type"`
	CPU       string `json:"cpu"`
	RAMBytes  uint64 `json:"ram_bytes"`
}

// Worker is a registered machine.
type Worker struct {
	ID          string    `json:"worker_id"`
	Hostname    string    `json:"hostname"`
	IPAddress   string    `json:"ip_address"`
	OSType      string    `json:"os_type"`
	CPU         string    `json:"cpu"`
	RAMBytes    uint64    `json:"ram_bytes"`
	State       State     `json:"status"`
	LastCheckin time.Time `json:"last_checkin"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stale reports whether the worker has not checked in since cutoff.
func (w *Worker) Stale(cutoff time.Time) bool {
	return w != nil && w.LastCheckin.Before(cutoff)
}

// ClearResult reports what ClearAll did. Blocked is the number of processing
// workers that prevented the clear; when it is non-zero nothing was removed.
type ClearResult struct {
	Removed int `json:"removed"`
	Blocked int `json:"blocked"`
}
