package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// statusLabel renders a lifecycle value for tables ("pending" -> "Pending").
func statusLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

// formatGB renders bytes as decimal gigabytes, the unit library sizes are
// usually discussed in.
func formatGB(bytes int64) string {
	return fmt.Sprintf("%.2f GB", float64(bytes)/1e9)
}

func formatOptionalGB(bytes *int64) string {
	if bytes == nil {
		return "-"
	}
	return formatGB(*bytes)
}

func formatBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

func formatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func formatPosition(position int64) string {
	if position == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", position)
}
