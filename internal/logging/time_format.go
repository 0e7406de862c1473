package logging

import "time"

// Console headers use local wall time with milliseconds so interleaved
// coordinator and CLI lines sort correctly.
const consoleHeaderLayout = "2006-01-02 15:04:05.000"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(consoleHeaderLayout)
}

// formatAttrTime renders time-valued fields (check-ins, cutoffs) in UTC, the
// same zone the queue database stores.
func formatAttrTime(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	return ts.UTC().Format(time.RFC3339)
}
