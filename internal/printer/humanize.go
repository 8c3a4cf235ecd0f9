package printer

import (
	"time"

	"github.com/dustin/go-humanize"
)

var now = time.Now

// TimeAgo returns a human-readable relative time, e.g. "3 minutes ago".
func TimeAgo(t time.Time) string {
	return humanize.RelTime(t, now(), "ago", "from now")
}

// FormatTimestamp returns the timestamp in UTC ("2006-01-02 15:04:05 UTC").
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatBytes returns a human-readable binary byte size, e.g. "1.5 KiB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
