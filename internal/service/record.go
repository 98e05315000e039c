package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/haatos/nightly/internal"
)

// Record is the persisted summary of one pipeline run. It is written exactly
// once, as <timestamp>.json in the output directory, on every exit path.
type Record struct {
	Timestamp        string        `json:"timestamp"`
	Branch           string        `json:"branch"`
	Tag              string        `json:"tag,omitempty"`
	Revision         string        `json:"revision,omitempty"`
	Repo             string        `json:"repo,omitempty"`
	BuildDir         string        `json:"build_dir"`
	InstallDir       string        `json:"install_dir"`
	OutputDir        string        `json:"output_dir"`
	Log              string        `json:"log"`
	DryRun           bool          `json:"dry_run"`
	KeepIntermediate bool          `json:"keep_intermediate"`
	Success          bool          `json:"success"`
	TotalSeconds     float64       `json:"total_seconds"`
	Release          string        `json:"release,omitempty"`
	ReleasePath      string        `json:"release_path,omitempty"`
	ReleaseLink      string        `json:"release_link,omitempty"`
	Steps            []StepSummary `json:"steps"`
}

// StepSummary is the per-step slice of a record. ExitCode is nil for steps
// that never ran or whose process could not be started.
type StepSummary struct {
	Description     string  `json:"description"`
	ExitCode        *int    `json:"exit_code"`
	Success         bool    `json:"success"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
}

func NewStepSummary(s *Step) StepSummary {
	summary := StepSummary{
		Description:     s.Spec.Description,
		Success:         s.Success(),
		DurationSeconds: s.Elapsed.Seconds(),
	}
	if s.Result == nil {
		return summary
	}
	if s.Result.LaunchErr != nil {
		summary.Error = s.Result.LaunchErr.Error()
	} else {
		code := s.Result.ExitCode
		summary.ExitCode = &code
	}
	return summary
}

func (r *Record) Filename() string {
	return r.Timestamp + internal.RecordExt
}

func (r *Record) Write(dir string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("err marshaling run record: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, r.Filename()), b, 0o644)
}

func ReadRecord(path string) (*Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := new(Record)
	if err := json.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("err parsing run record %s: %w", path, err)
	}
	return r, nil
}

// ListRecordFiles returns the run record filenames in dir, sorted by name.
// Because records are named by a fixed-width timestamp, name order is
// chronological order.
func ListRecordFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), internal.RecordExt) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}
