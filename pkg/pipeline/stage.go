package pipeline

import (
	"context"
	"fmt"
)

// Stage names in pipeline order.
const (
	StageMaturity        = "maturity"
	StageAspects         = "aspects"
	StagePersonas        = "personas"
	StageInterviews      = "interviews"
	StageRecommendations = "recommendations"
	StagePlan            = "plan"
	StageTechnology      = "technology"
	StageReadiness       = "readiness"
)

// Stage is one step of the pipeline. Run writes only the stage's own fields.
type Stage interface {
	Name() string
	Run(ctx context.Context, s *State) error
}

// DegradationReporter is implemented by stages that can finish on fallback values.
type DegradationReporter interface {
	Degraded(s *State) bool
}

// FailureMode decides what happens when a stage exhausts its retries.
type FailureMode int

const (
	// Abort stops the run and returns a StageError.
	Abort FailureMode = iota
	// Continue logs the failure and proceeds with the stage's fields unset.
	Continue
)

func (m FailureMode) String() string {
	if m == Continue {
		return "continue"
	}
	return "abort"
}

// StageSpec pairs a stage with its failure mode.
type StageSpec struct {
	Stage Stage
	Mode  FailureMode
}

// StageError reports a load-bearing stage that could not complete.
type StageError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
