package store

import (
	"context"
	"time"
)

// Run is one row of the run history index. The authoritative run record is
// the JSON file in the output directory; this table exists so past runs can
// be listed and served without scanning the filesystem.
type Run struct {
	Timestamp       string
	Branch          string
	Tag             *string
	Success         bool
	DurationSeconds float64
	Release         *string
	ReleasePath     *string
	ReleaseLink     *string
	Log             string
	CreatedOn       time.Time
}

type RunStore interface {
	CreateRun(context.Context, *Run) error
	ReadRunByTimestamp(context.Context, string) (*Run, error)
	ListRuns(context.Context, int64) ([]Run, error)
	DeleteRun(context.Context, string) error
	CountRuns(context.Context) (int64, error)
}
