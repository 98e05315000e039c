package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
)

type RunSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewRunSQLiteStore(rdb, rwdb *sql.DB) *RunSQLiteStore {
	return &RunSQLiteStore{rdb, rwdb}
}

func (store *RunSQLiteStore) CreateRun(ctx context.Context, r *Run) error {
	query := `insert into runs (
		timestamp,
		branch,
		tag,
		success,
		duration_seconds,
		"release",
		release_path,
		release_link,
		log
	)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	returning timestamp, created_on`
	return sqlscan.Get(
		ctx, store.rwdb, r, query,
		r.Timestamp,
		r.Branch,
		r.Tag,
		r.Success,
		r.DurationSeconds,
		r.Release,
		r.ReleasePath,
		r.ReleaseLink,
		r.Log,
	)
}

func (store *RunSQLiteStore) ReadRunByTimestamp(
	ctx context.Context,
	timestamp string,
) (*Run, error) {
	r := &Run{Timestamp: timestamp}
	query := "select * from runs where timestamp = $1"
	if err := sqlscan.Get(ctx, store.rdb, r, query, r.Timestamp); err != nil {
		return nil, err
	}
	return r, nil
}

func (store *RunSQLiteStore) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	query := `select * from runs
	order by timestamp desc limit $1`
	runs := make([]Run, 0)
	err := sqlscan.Select(ctx, store.rdb, &runs, query, limit)
	return runs, err
}

func (store *RunSQLiteStore) DeleteRun(ctx context.Context, timestamp string) error {
	query := "delete from runs where timestamp = $1"
	_, err := store.rwdb.ExecContext(ctx, query, timestamp)
	return err
}

func (store *RunSQLiteStore) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	query := "select count(*) from runs"
	err := sqlscan.Get(ctx, store.rdb, &count, query)
	return count, err
}
