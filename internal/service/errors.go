package service

import "fmt"

// MetadataError aborts a run when one of the git metadata lookups fails after
// a successful install step. Unlike regular step failures it propagates out of
// the pipeline, but finalization still runs.
type MetadataError struct {
	Step *Step
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("failed to resolve %s", e.Step.Spec.Description)
}
