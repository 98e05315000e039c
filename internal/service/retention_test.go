package service

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedRecord writes a run record with its log and, when withRelease is set, a
// release artifact, all inside dir.
func seedRecord(t *testing.T, dir, timestamp string, withRelease bool) *Record {
	t.Helper()
	rec := &Record{
		Timestamp: timestamp,
		Branch:    "master",
		OutputDir: dir,
		Log:       filepath.Join(dir, timestamp+".log"),
	}
	if withRelease {
		rec.Release = fmt.Sprintf("RELEASE_%s.tar.gz", timestamp)
		rec.ReleasePath = filepath.Join(dir, rec.Release)
		require.NoError(t, os.WriteFile(rec.ReleasePath, []byte("tarball"), 0o644))
	}
	require.NoError(t, os.WriteFile(rec.Log, []byte("log"), 0o644))
	require.NoError(t, rec.Write(dir))
	return rec
}

func intp(v int) *int { return &v }

func TestPrune(t *testing.T) {
	timestamps := []string{
		"20240101000000",
		"20240102000000",
		"20240103000000",
		"20240104000000",
		"20240105000000",
	}

	t.Run("success - keeps the most recent records", func(t *testing.T) {
		// arrange: five records, keep two (scenario D)
		dir := t.TempDir()
		for _, ts := range timestamps {
			seedRecord(t, dir, ts, true)
		}

		// act
		pruned, err := Prune(dir, intp(2))

		// assert
		assert.NoError(t, err)
		assert.Equal(t, timestamps[:3], pruned)
		names, listErr := ListRecordFiles(dir)
		assert.NoError(t, listErr)
		assert.Equal(t, []string{
			"20240104000000.json",
			"20240105000000.json",
		}, names)
		for _, ts := range timestamps[:3] {
			assert.NoFileExists(t, filepath.Join(dir, ts+".log"))
			assert.NoFileExists(t, filepath.Join(dir, "RELEASE_"+ts+".tar.gz"))
		}
		for _, ts := range timestamps[3:] {
			assert.FileExists(t, filepath.Join(dir, ts+".log"))
			assert.FileExists(t, filepath.Join(dir, "RELEASE_"+ts+".tar.gz"))
		}
	})
	t.Run("success - keep zero deletes everything", func(t *testing.T) {
		// arrange
		dir := t.TempDir()
		for _, ts := range timestamps {
			seedRecord(t, dir, ts, false)
		}

		// act
		pruned, err := Prune(dir, intp(0))

		// assert
		assert.NoError(t, err)
		assert.Len(t, pruned, 5)
		names, _ := ListRecordFiles(dir)
		assert.Empty(t, names)
	})
	t.Run("success - nil keep disables pruning", func(t *testing.T) {
		// arrange
		dir := t.TempDir()
		for _, ts := range timestamps {
			seedRecord(t, dir, ts, false)
		}

		// act
		pruned, err := Prune(dir, nil)

		// assert
		assert.NoError(t, err)
		assert.Empty(t, pruned)
		names, _ := ListRecordFiles(dir)
		assert.Len(t, names, 5)
	})
	t.Run("success - negative keep disables pruning", func(t *testing.T) {
		// arrange
		dir := t.TempDir()
		seedRecord(t, dir, timestamps[0], false)

		// act
		pruned, err := Prune(dir, intp(-1))

		// assert
		assert.NoError(t, err)
		assert.Empty(t, pruned)
	})
	t.Run("success - missing referenced files are not errors", func(t *testing.T) {
		// arrange
		dir := t.TempDir()
		rec := seedRecord(t, dir, timestamps[0], true)
		seedRecord(t, dir, timestamps[1], false)
		require.NoError(t, os.Remove(rec.Log))
		require.NoError(t, os.Remove(rec.ReleasePath))

		// act
		pruned, err := Prune(dir, intp(1))

		// assert
		assert.NoError(t, err)
		assert.Equal(t, []string{timestamps[0]}, pruned)
	})
	t.Run("success - missing output dir is a no-op", func(t *testing.T) {
		// act
		pruned, err := Prune(filepath.Join(t.TempDir(), "missing"), intp(3))

		// assert
		assert.NoError(t, err)
		assert.Empty(t, pruned)
	})
	t.Run("failure - unreadable record is skipped, rest pruned", func(t *testing.T) {
		// arrange
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "20240101000000.json"), []byte("not json"), 0o644,
		))
		seedRecord(t, dir, timestamps[1], false)
		seedRecord(t, dir, timestamps[2], false)

		// act
		pruned, err := Prune(dir, intp(1))

		// assert
		assert.Error(t, err)
		assert.Equal(t, []string{timestamps[1]}, pruned)
		assert.FileExists(t, filepath.Join(dir, "20240101000000.json"))
	})
}
