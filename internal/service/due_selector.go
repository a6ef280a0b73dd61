package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// IsDue reports whether scheduled falls in the half-open window
// [now-window, now]. Anything older is a missed slot and is never picked up.
func IsDue(now, scheduled time.Time, window time.Duration) bool {
	delta := now.Sub(scheduled)
	return delta >= 0 && delta < window
}

// ParseScheduleTime parses post_at_iso. Values without an offset are read in
// the local zone.
func ParseScheduleTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	t, err := dateparse.ParseIn(value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid post_at_iso %q: %w", value, err)
	}
	return t, nil
}
