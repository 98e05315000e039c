package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/haatos/nightly/internal/util"
)

// Prune deletes the oldest run records in outputDir beyond keep, together
// with each record's referenced log file and release artifact. A nil or
// negative keep disables pruning. Missing files are not errors.
//
// Pruning runs before any build step; its failures are reported to the
// caller but must never block the build, so Prune collects errors instead of
// stopping at the first one. Returns the timestamps of the pruned records.
func Prune(outputDir string, keep *int) ([]string, error) {
	if keep == nil || *keep < 0 {
		return nil, nil
	}

	names, err := ListRecordFiles(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("err listing run records: %w", err)
	}
	excess := len(names) - *keep
	if excess <= 0 {
		return nil, nil
	}

	pruned := make([]string, 0, excess)
	var errs []error
	for _, name := range names[:excess] {
		path := filepath.Join(outputDir, name)
		rec, err := ReadRecord(path)
		if err != nil {
			// An unreadable record is skipped rather than deleted blind: its
			// referenced log and artifact could not be cleaned up with it.
			errs = append(errs, err)
			continue
		}
		if err := util.Remove(rec.Log); err != nil {
			errs = append(errs, fmt.Errorf("err removing log %s: %w", rec.Log, err))
		}
		if rec.ReleasePath != "" {
			if err := util.Remove(rec.ReleasePath); err != nil {
				errs = append(errs, fmt.Errorf(
					"err removing release %s: %w", rec.ReleasePath, err,
				))
			}
		}
		if err := util.Remove(path); err != nil {
			errs = append(errs, fmt.Errorf("err removing record %s: %w", path, err))
			continue
		}
		pruned = append(pruned, rec.Timestamp)
	}
	return pruned, errors.Join(errs...)
}
