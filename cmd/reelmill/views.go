package main

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatBytes(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.IBytes(uint64(size))
}

func formatAge(now, then time.Time) string {
	if then.IsZero() {
		return "-"
	}
	return humanize.RelTime(then, now, "ago", "from now")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
