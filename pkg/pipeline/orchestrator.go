package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"dtplanner/pkg/agent/llmerrors"
	"dtplanner/pkg/agent/middleware/resilience/retry"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/interview"
	"dtplanner/pkg/logx"
)

// DefaultRetryConfig bounds stage-level retries.
//
//nolint:gochecknoglobals // default config pattern
var DefaultRetryConfig = retry.Config{
	MaxAttempts:   3,
	InitialDelay:  2 * time.Second,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// StageRetryable decides whether a failed stage attempt is worth repeating.
// Parse and transient model errors are. Cancellation, request errors that would
// fail the same way again, and errors the client retry layer already gave up on
// are not.
func StageRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch {
	case llmerrors.Is(err, llmerrors.ErrorTypeAuth),
		llmerrors.Is(err, llmerrors.ErrorTypeBadPrompt),
		llmerrors.Is(err, llmerrors.ErrorTypeServiceUnavailable):
		return false
	}
	var stageErr *StageError
	return !errors.As(err, &stageErr)
}

// Orchestrator runs stages strictly in order over one State.
type Orchestrator struct {
	stages       []StageSpec
	policy       *retry.Policy
	stageTimeout time.Duration
	observer     Observer
	tracer       trace.Tracer
	logger       *logx.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetryPolicy replaces the stage retry policy.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithStageTimeout bounds each stage attempt. Zero disables the deadline.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stageTimeout = d }
}

// WithObservers adds run observers.
func WithObservers(obs ...Observer) Option {
	return func(o *Orchestrator) {
		if existing, ok := o.observer.(MultiObserver); ok {
			o.observer = append(existing, obs...)
			return
		}
		o.observer = append(MultiObserver{o.observer}, obs...)
	}
}

// WithTracer replaces the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// NewOrchestrator creates an orchestrator over stages.
func NewOrchestrator(stages []StageSpec, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:   stages,
		policy:   retry.NewPolicy(DefaultRetryConfig, StageRetryable),
		observer: NopObserver{},
		tracer:   defaultTracer(),
		logger:   logx.NewLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stages returns the configured stage names in order.
func (o *Orchestrator) Stages() []string {
	names := make([]string, len(o.stages))
	for i, spec := range o.stages {
		names[i] = spec.Stage.Name()
	}
	return names
}

// Run executes every stage for company. An empty runID gets a fresh UUID.
// The returned state is never nil once the company validates; on a
// load-bearing failure it holds every field written before the failing stage
// and the error is a *StageError.
func (o *Orchestrator) Run(ctx context.Context, runID string, company domain.CompanyProfile) (*State, error) {
	if err := company.Validate(); err != nil {
		return nil, fmt.Errorf("invalid company profile: %w", err)
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	state := NewState(runID, company)

	ctx, span := startRunSpan(ctx, o.tracer, state)
	defer span.End()

	ctx = withInterviewHook(ctx, func(ev interview.Event) {
		o.observer.InterviewEvent(ctx, runID, ev)
	})

	o.logger.Info("[%s] starting planning run for %s (%d stages)", runID, company.Name, len(o.stages))
	o.observer.RunStarted(ctx, state)

	degraded := false
	for _, spec := range o.stages {
		result, next := o.runStage(ctx, spec, state)
		o.observer.StageFinished(ctx, runID, result, next)
		state = next
		degraded = degraded || result.Degraded || result.Skipped

		if result.Err == nil || result.Skipped {
			continue
		}
		err := &StageError{Stage: result.Stage, Attempts: result.Attempts, Err: result.Err}
		endRunSpan(span, StatusFailed, err)
		o.observer.RunFinished(ctx, state, StatusFailed, err)
		return state, err
	}

	status := StatusSucceeded
	if degraded {
		status = StatusDegraded
	}
	endRunSpan(span, status, nil)
	o.observer.RunFinished(ctx, state, status, nil)
	return state, nil
}

// runStage runs one stage under the retry policy. Every attempt works on its
// own clone of in; only a successful attempt's clone is returned.
func (o *Orchestrator) runStage(ctx context.Context, spec StageSpec, in *State) (StageResult, *State) {
	name := spec.Stage.Name()
	o.observer.StageStarted(ctx, in.RunID, name)

	ctx, span := startStageSpan(ctx, o.tracer, name)
	defer span.End()

	start := time.Now()
	var committed *State
	attempts, err := o.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			o.logger.Warn("[%s] retrying stage %s (attempt %d)", in.RunID, name, attempt)
		}
		attemptCtx := ctx
		if o.stageTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, o.stageTimeout)
			defer cancel()
		}
		work := in.Clone()
		if err := spec.Stage.Run(attemptCtx, work); err != nil {
			return err
		}
		committed = work
		return nil
	})

	result := StageResult{Stage: name, Attempts: attempts, Duration: time.Since(start), Err: err}
	if err != nil {
		// A cancelled run is never skipped, whatever the stage mode.
		result.Skipped = spec.Mode == Continue && ctx.Err() == nil
		endStageSpan(span, result)
		return result, in
	}
	if r, ok := spec.Stage.(DegradationReporter); ok {
		result.Degraded = r.Degraded(committed)
	}
	endStageSpan(span, result)
	return result, committed
}
