package catalog

import "sort"

// Snapshot maps file paths to their last-modified value.
type Snapshot map[string]string

// SnapshotOf indexes entries by path.
func SnapshotOf(entries []Entry) Snapshot {
	snap := make(Snapshot, len(entries))
	for _, entry := range entries {
		snap[entry.FilePath] = entry.FileModified
	}
	return snap
}

// DiffResult lists paths that are new in current or whose modification
// value differs from previous. Both lists are sorted.
type DiffResult struct {
	New     []string `json:"new"`
	Changed []string `json:"changed"`
}

// Count returns the number of new and changed paths.
func (d DiffResult) Count() int {
	return len(d.New) + len(d.Changed)
}

// Diff compares current against previous. Paths only in previous are ignored.
func Diff(current, previous Snapshot) DiffResult {
	var result DiffResult
	for path, modified := range current {
		old, ok := previous[path]
		switch {
		case !ok:
			result.New = append(result.New, path)
		case old != modified:
			result.Changed = append(result.Changed, path)
		}
	}
	sort.Strings(result.New)
	sort.Strings(result.Changed)
	return result
}
