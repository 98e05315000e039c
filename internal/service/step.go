package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/haatos/nightly/internal/settings"
)

// StepSpec describes one externally executed command.
type StepSpec struct {
	Command     []string
	WorkingDir  string
	Description string
	// Timeout bounds the child process; zero means the step blocks until the
	// process exits on its own.
	Timeout time.Duration
}

func NewStepSpec(sc settings.StepConfig) StepSpec {
	description := sc.Description
	if description == "" {
		description = "No description"
	}
	return StepSpec{
		Command:     strings.Fields(sc.Command),
		WorkingDir:  sc.WorkingDir,
		Description: description,
		Timeout:     sc.Timeout(),
	}
}

// StepResult is the immutable outcome of a single step execution. LaunchErr
// is set when the process could not be started at all; in that case ExitCode
// is meaningless.
type StepResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	LaunchErr error
}

func (r *StepResult) Success() bool {
	return r.LaunchErr == nil && r.ExitCode == 0
}

// Step pairs a spec with its result. Result stays nil until the step has run.
// A step with a recorded exit code is never re-run; a launch failure leaves no
// exit code, so the step stays eligible to run again.
type Step struct {
	Spec    StepSpec
	Result  *StepResult
	Elapsed time.Duration

	logger *log.Logger
}

func NewStep(spec StepSpec, logger *log.Logger) *Step {
	return &Step{Spec: spec, logger: logger}
}

func NewSteps(configs []settings.StepConfig, logger *log.Logger) []*Step {
	steps := make([]*Step, 0, len(configs))
	for _, sc := range configs {
		steps = append(steps, NewStep(NewStepSpec(sc), logger))
	}
	return steps
}

// Done reports whether the step has an exit code recorded.
func (s *Step) Done() bool {
	return s.Result != nil && s.Result.LaunchErr == nil
}

// Ran reports whether the step was executed at all, launch failures included.
func (s *Step) Ran() bool {
	return s.Result != nil
}

func (s *Step) Success() bool {
	return s.Result != nil && s.Result.Success()
}

// Run launches the command in the configured working directory and blocks
// until it exits. In dry-run mode no process is launched and the step reports
// success with empty output. All failures are captured into the result; Run
// never propagates them. Returns the step's success flag.
func (s *Step) Run(ctx context.Context, dryRun bool) bool {
	sw := NewStopWatch()
	res := &StepResult{}
	if !dryRun {
		res = s.execute(ctx)
	}
	s.Result = res
	sw.Stop()
	s.Elapsed = sw.Elapsed()
	s.logResult()
	return s.Success()
}

func (s *Step) execute(ctx context.Context) *StepResult {
	res := &StepResult{}
	if len(s.Spec.Command) == 0 {
		res.LaunchErr = errors.New("empty command")
		return res
	}

	cancel := func() {}
	if s.Spec.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.Spec.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Spec.Command[0], s.Spec.Command[1:]...)
	cmd.Dir = s.Spec.WorkingDir
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.LaunchErr = err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.LaunchErr = fmt.Errorf(
			"step timed out after %s", FormatDuration(s.Spec.Timeout),
		)
	}
	return res
}

func (s *Step) logResult() {
	if s.logger == nil {
		return
	}
	if s.Result.LaunchErr != nil {
		s.logger.Printf(
			"%q failed to start: %v\n- - - stdout\n%s\n- - - stderr\n%s\n- - -",
			s.Spec.Description, s.Result.LaunchErr, s.Result.Stdout, s.Result.Stderr,
		)
		return
	}
	s.logger.Printf(
		"%q finished with code %d\n- - - stdout\n%s\n- - - stderr\n%s\n- - -",
		s.Spec.Description, s.Result.ExitCode, s.Result.Stdout, s.Result.Stderr,
	)
}

// StatusLine is the per-step progress line shown to the operator.
func (s *Step) StatusLine() string {
	mark := "✗"
	if s.Success() {
		mark = "✓"
	}
	return fmt.Sprintf("%s %s (%s)", mark, s.Spec.Description, FormatDuration(s.Elapsed))
}

// ErrorMessage formats the diagnostic for a failed step. Empty for steps that
// succeeded or never ran.
func (s *Step) ErrorMessage() string {
	if s.Result == nil {
		return ""
	}
	if s.Result.LaunchErr != nil {
		return fmt.Sprintf(
			"%q failed with error:\n%v",
			s.Spec.Description, s.Result.LaunchErr,
		)
	}
	if s.Result.ExitCode != 0 {
		return fmt.Sprintf(
			"%q failed with exit code %d:\n%s\n%s",
			s.Spec.Description, s.Result.ExitCode, s.Result.Stdout, s.Result.Stderr,
		)
	}
	return ""
}
