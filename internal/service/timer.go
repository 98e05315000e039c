package service

import (
	"fmt"
	"strings"
	"time"
)

// StopWatch measures the wall-clock duration of an operation. It starts
// counting when created.
type StopWatch struct {
	start time.Time
	end   time.Time
}

func NewStopWatch() *StopWatch {
	return &StopWatch{start: time.Now()}
}

// Stop freezes the end point. Further calls to Elapsed return the same value.
func (sw *StopWatch) Stop() {
	sw.end = time.Now()
}

// Elapsed returns the duration from start to stop, or to now if the stop
// watch is still running.
func (sw *StopWatch) Elapsed() time.Duration {
	end := sw.end
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(sw.start)
}

// FormatDuration renders a duration for human-readable status lines, e.g.
// "2 minutes and 5 seconds".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Second {
		return fmt.Sprintf("%.2g seconds", d.Seconds())
	}

	parts := make([]string, 0, 3)
	hours := int64(d / time.Hour)
	minutes := int64(d/time.Minute) % 60
	seconds := int64(d/time.Second) % 60
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
