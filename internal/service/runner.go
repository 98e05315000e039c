package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haatos/nightly/internal"
	"github.com/haatos/nightly/internal/settings"
	"github.com/haatos/nightly/internal/store"
	"github.com/haatos/nightly/internal/util"
)

var (
	gitInfoCommand = []string{"git", "log", "--format=%h %s by %an", "-n", "1"}
	gitTagCommand  = []string{"git", "describe", "--tags", "--dirty", "--always"}
)

// RunOptions are the per-invocation parameters, already validated by the CLI.
type RunOptions struct {
	Branch           string
	DryRun           bool
	KeepIntermediate bool
	// Timestamp overrides the run timestamp; empty means now. Used by tests.
	Timestamp string
	// Out receives operator-facing progress lines; defaults to os.Stdout.
	Out io.Writer
	// History is the optional sqlite run index. Nil disables indexing.
	History store.RunStore
}

// Runner executes one pipeline run end to end: prune old records, run the
// install step, resolve git metadata, run the remaining steps in order,
// package the release artifact and finalize. Finalization (record persistence,
// log closing, install dir cleanup) happens on every exit path.
type Runner struct {
	cfg    *settings.Config
	opts   RunOptions
	logger *log.Logger

	gitInfoCmd []string
	gitTagCmd  []string
}

func NewRunner(cfg *settings.Config, opts RunOptions) *Runner {
	if opts.Branch == "" {
		opts.Branch = "master"
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Runner{
		cfg:        cfg,
		opts:       opts,
		gitInfoCmd: gitInfoCommand,
		gitTagCmd:  gitTagCommand,
	}
}

// Execute performs the run. The returned record reflects the outcome whether
// or not an error is returned; a non-nil error means the run was aborted by a
// metadata resolution failure, not that a build step failed.
func (r *Runner) Execute(ctx context.Context) (rec *Record, err error) {
	timestamp := r.opts.Timestamp
	if timestamp == "" {
		timestamp = time.Now().Format(internal.TimestampLayout)
	}
	installDir := filepath.Join(r.cfg.BuildDir, timestamp)
	rec = &Record{
		Timestamp:        timestamp,
		Branch:           r.opts.Branch,
		Repo:             r.cfg.Repo,
		BuildDir:         r.cfg.BuildDir,
		InstallDir:       installDir,
		OutputDir:        r.cfg.OutputDir,
		Log:              filepath.Join(r.cfg.OutputDir, timestamp+internal.LogExt),
		DryRun:           r.opts.DryRun,
		KeepIntermediate: r.opts.KeepIntermediate,
	}

	if !r.opts.DryRun {
		for _, dir := range []string{r.cfg.BuildDir, installDir, r.cfg.OutputDir} {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return rec, fmt.Errorf("err creating directory %s: %w", dir, err)
			}
		}
	}

	logger, closeLog := r.openRunLog(rec.Log)
	r.logger = logger

	if !r.opts.DryRun {
		r.prune(ctx, logger)
	}

	steps := NewSteps(r.expandSteps(rec), logger)

	defer func() {
		r.finalize(ctx, rec, steps, logger)
		closeLog()
	}()

	return rec, r.runPipeline(ctx, rec, steps)
}

func (r *Runner) runPipeline(ctx context.Context, rec *Record, steps []*Step) error {
	install := steps[0]
	if install.Run(ctx, r.opts.DryRun) {
		if err := r.resolveMetadata(ctx, rec); err != nil {
			return err
		}
	}

	fmt.Fprintln(r.opts.Out)
	success := true
	total := time.Duration(0)
	for _, step := range steps {
		if success && !step.Done() {
			success = step.Run(ctx, r.opts.DryRun)
		}
		fmt.Fprintln(r.opts.Out, step.StatusLine())
		total += step.Elapsed
	}
	rec.TotalSeconds = total.Seconds()
	fmt.Fprintf(r.opts.Out, "\nBuild finished in %s.\n", FormatDuration(total))

	for _, step := range steps {
		if step.Ran() && !step.Success() {
			fmt.Fprintf(r.opts.Out, "\n%s\n\nBuild failed.\n", step.ErrorMessage())
			return nil
		}
	}

	r.packageRelease(rec)
	return nil
}

// resolveMetadata runs the two git lookups in the install directory. These
// use the same step abstraction but, unlike build steps, a failure here
// aborts the whole run: the tag is required to name the release artifact.
func (r *Runner) resolveMetadata(ctx context.Context, rec *Record) error {
	info := NewStep(StepSpec{
		Command:     r.gitInfoCmd,
		WorkingDir:  rec.InstallDir,
		Description: "git info",
	}, r.logger)
	if !info.Run(ctx, r.opts.DryRun) {
		return &MetadataError{Step: info}
	}
	rec.Revision = strings.TrimSpace(info.Result.Stdout)
	fmt.Fprintf(r.opts.Out, "\nBuild branch %s at %s\n", rec.Branch, rec.Revision)

	tag := NewStep(StepSpec{
		Command:     r.gitTagCmd,
		WorkingDir:  rec.InstallDir,
		Description: "git tag",
	}, r.logger)
	if !tag.Run(ctx, r.opts.DryRun) {
		return &MetadataError{Step: tag}
	}
	rec.Tag = strings.TrimSpace(tag.Result.Stdout)
	r.logger.Printf("git tag = %q", rec.Tag)
	return nil
}

// packageRelease locates the expected artifact and relocates it into the
// output directory. A missing artifact fails the run without aborting it.
func (r *Runner) packageRelease(rec *Record) {
	logger := r.logger
	release := fmt.Sprintf("%s_%s.tar.gz", r.cfg.ReleasePrefix, rec.Tag)
	releasePath := filepath.Join(rec.InstallDir, r.cfg.DistDir, release)
	if !util.IsFile(releasePath) {
		fmt.Fprintf(r.opts.Out, "\nCannot find release package %s\n", releasePath)
		logger.Printf("release package %s not found", releasePath)
		return
	}

	dest := filepath.Join(r.cfg.OutputDir, release)
	if err := util.Move(releasePath, dest); err != nil {
		fmt.Fprintf(r.opts.Out, "\nFailed to move release package: %v\n", err)
		logger.Printf("err moving release package: %v", err)
		return
	}
	rec.Release = release
	rec.ReleasePath = dest
	rec.Success = true
	fmt.Fprintln(r.opts.Out, "\nBuild succeeded.")

	if r.cfg.DownloadPrefix != "" {
		rec.ReleaseLink = r.cfg.DownloadPrefix + release
		fmt.Fprintf(r.opts.Out, "\nYou can download this build from %s\n", rec.ReleaseLink)
	}

	if r.cfg.Upload != nil && !r.opts.DryRun {
		r.uploadRelease(rec, logger)
	}
}

func (r *Runner) uploadRelease(rec *Record, logger *log.Logger) {
	uploader, err := NewUploader(r.cfg.Upload)
	if err != nil {
		fmt.Fprintf(r.opts.Out, "\nFailed to upload release: %v\n", err)
		logger.Printf("err creating uploader: %v", err)
		return
	}
	defer uploader.Close()

	remotePath, err := uploader.Upload(rec.ReleasePath)
	if err != nil {
		fmt.Fprintf(r.opts.Out, "\nFailed to upload release: %v\n", err)
		logger.Printf("err uploading release: %v", err)
		return
	}
	logger.Printf("release uploaded to %s:%s", r.cfg.Upload.Host, remotePath)
}

// prune enforces the retention policy before any build work starts. Pruning
// failures are logged and never block the build.
func (r *Runner) prune(ctx context.Context, logger *log.Logger) {
	pruned, err := Prune(r.cfg.OutputDir, r.cfg.BuildsToKeep)
	if err != nil {
		fmt.Fprintf(r.opts.Out, "Warning: pruning old builds: %v\n", err)
		logger.Printf("err pruning old builds: %v", err)
	}
	if r.opts.History == nil {
		return
	}
	for _, timestamp := range pruned {
		if err := r.opts.History.DeleteRun(ctx, timestamp); err != nil {
			logger.Printf("err deleting run %s from history: %v", timestamp, err)
		}
	}
}

// finalize persists the run record and cleans the install directory. It runs
// exactly once, on every exit path, including metadata aborts. Dry runs leave
// the filesystem untouched, so no record is written for them.
func (r *Runner) finalize(ctx context.Context, rec *Record, steps []*Step, logger *log.Logger) {
	rec.Steps = make([]StepSummary, 0, len(steps))
	for _, step := range steps {
		rec.Steps = append(rec.Steps, NewStepSummary(step))
	}

	if !rec.DryRun {
		if err := rec.Write(r.cfg.OutputDir); err != nil {
			fmt.Fprintf(r.opts.Out, "Warning: writing run record: %v\n", err)
			logger.Printf("err writing run record: %v", err)
		}
	}

	if r.opts.History != nil {
		if err := r.opts.History.CreateRun(ctx, recordToRow(rec)); err != nil {
			logger.Printf("err indexing run in history: %v", err)
		}
	}

	if !rec.KeepIntermediate && !rec.DryRun {
		if err := util.Remove(rec.InstallDir); err != nil {
			logger.Printf("err removing install dir: %v", err)
		}
	}
}

func (r *Runner) expandSteps(rec *Record) []settings.StepConfig {
	vars := map[string]string{
		"repo":        r.cfg.Repo,
		"branch":      rec.Branch,
		"timestamp":   rec.Timestamp,
		"build_dir":   rec.BuildDir,
		"install_dir": rec.InstallDir,
		"output_dir":  rec.OutputDir,
	}
	expanded := make([]settings.StepConfig, 0, len(r.cfg.Build))
	for _, sc := range r.cfg.Build {
		expanded = append(expanded, sc.Expand(vars))
	}
	return expanded
}

var discardLogger = log.New(io.Discard, "", 0)

func (r *Runner) openRunLog(path string) (*log.Logger, func()) {
	if r.opts.DryRun {
		return discardLogger, func() {}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(r.opts.Out, "Warning: opening run log: %v\n", err)
		return discardLogger, func() {}
	}
	return log.New(f, "", log.LstdFlags), func() { _ = f.Close() }
}

func recordToRow(rec *Record) *store.Run {
	row := &store.Run{
		Timestamp:       rec.Timestamp,
		Branch:          rec.Branch,
		Success:         rec.Success,
		DurationSeconds: rec.TotalSeconds,
		Log:             rec.Log,
	}
	if rec.Tag != "" {
		row.Tag = &rec.Tag
	}
	if rec.Release != "" {
		row.Release = &rec.Release
	}
	if rec.ReleasePath != "" {
		row.ReleasePath = &rec.ReleasePath
	}
	if rec.ReleaseLink != "" {
		row.ReleaseLink = &rec.ReleaseLink
	}
	return row
}
