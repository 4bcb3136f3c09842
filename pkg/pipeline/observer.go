package pipeline

import (
	"context"
	"time"

	"dtplanner/pkg/interview"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/metrics"
)

// StageResult describes one finished stage.
type StageResult struct {
	Stage    string
	Attempts int
	Duration time.Duration
	Err      error // last error when the stage did not complete
	Degraded bool  // completed on fallback values somewhere inside the stage
	Skipped  bool  // failed in Continue mode, run carried on without it
}

// Outcome maps the result onto the metric outcome label.
func (r StageResult) Outcome() string {
	switch {
	case r.Skipped:
		return metrics.OutcomeSkipped
	case r.Err != nil:
		return metrics.OutcomeFailed
	case r.Degraded:
		return metrics.OutcomeDegraded
	default:
		return metrics.OutcomeSuccess
	}
}

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusDegraded  = "degraded"
	StatusFailed    = "failed"
)

// Observer is notified as a run progresses. Implementations must not block;
// InterviewEvent is called from interview goroutines.
type Observer interface {
	RunStarted(ctx context.Context, s *State)
	StageStarted(ctx context.Context, runID, stage string)
	StageFinished(ctx context.Context, runID string, result StageResult, s *State)
	InterviewEvent(ctx context.Context, runID string, ev interview.Event)
	RunFinished(ctx context.Context, s *State, status string, err error)
}

// NopObserver ignores every notification. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) RunStarted(context.Context, *State) {}
func (NopObserver) StageStarted(context.Context, string, string) {}
func (NopObserver) StageFinished(context.Context, string, StageResult, *State) {}
func (NopObserver) InterviewEvent(context.Context, string, interview.Event) {}
func (NopObserver) RunFinished(context.Context, *State, string, error) {}

// MultiObserver fans notifications out in order.
type MultiObserver []Observer

func (m MultiObserver) RunStarted(ctx context.Context, s *State) {
	for _, o := range m {
		o.RunStarted(ctx, s)
	}
}

func (m MultiObserver) StageStarted(ctx context.Context, runID, stage string) {
	for _, o := range m {
		o.StageStarted(ctx, runID, stage)
	}
}

func (m MultiObserver) StageFinished(ctx context.Context, runID string, result StageResult, s *State) {
	for _, o := range m {
		o.StageFinished(ctx, runID, result, s)
	}
}

func (m MultiObserver) InterviewEvent(ctx context.Context, runID string, ev interview.Event) {
	for _, o := range m {
		o.InterviewEvent(ctx, runID, ev)
	}
}

func (m MultiObserver) RunFinished(ctx context.Context, s *State, status string, err error) {
	for _, o := range m {
		o.RunFinished(ctx, s, status, err)
	}
}

// LoggingObserver writes progress to the pipeline logger.
type LoggingObserver struct {
	NopObserver
	logger *logx.Logger
}

// NewLoggingObserver creates a logging observer.
func NewLoggingObserver() *LoggingObserver {
	return &LoggingObserver{logger: logx.NewLogger("pipeline")}
}

func (l *LoggingObserver) StageStarted(_ context.Context, runID, stage string) {
	l.logger.Info("[%s] stage %s started", runID, stage)
}

func (l *LoggingObserver) StageFinished(_ context.Context, runID string, r StageResult, _ *State) {
	switch {
	case r.Skipped:
		l.logger.Warn("[%s] stage %s failed after %d attempt(s), continuing without it: %v", runID, r.Stage, r.Attempts, r.Err)
	case r.Err != nil:
		l.logger.Error("[%s] stage %s failed after %d attempt(s): %v", runID, r.Stage, r.Attempts, r.Err)
	default:
		l.logger.Info("[%s] stage %s %s in %s (%d attempt(s))", runID, r.Stage, r.Outcome(), r.Duration.Round(time.Millisecond), r.Attempts)
	}
}

func (l *LoggingObserver) InterviewEvent(_ context.Context, runID string, ev interview.Event) {
	if ev.Degraded {
		l.logger.Warn("[%s] interview %s turn %d: %s degraded: %s", runID, ev.Expert, ev.Turn, ev.Step, ev.Detail)
		return
	}
	l.logger.Debug("[%s] interview %s turn %d: %s", runID, ev.Expert, ev.Turn, ev.Step)
}

func (l *LoggingObserver) RunFinished(_ context.Context, s *State, status string, err error) {
	if err != nil {
		l.logger.Error("[%s] run %s: %v", s.RunID, status, err)
		return
	}
	l.logger.Info("[%s] run %s", s.RunID, status)
}

// MetricsObserver feeds the Prometheus pipeline collectors.
type MetricsObserver struct {
	NopObserver
	rec *metrics.PipelineRecorder
}

// NewMetricsObserver wraps rec.
func NewMetricsObserver(rec *metrics.PipelineRecorder) *MetricsObserver {
	return &MetricsObserver{rec: rec}
}

func (m *MetricsObserver) RunStarted(context.Context, *State) {
	m.rec.RunStarted()
}

func (m *MetricsObserver) StageFinished(_ context.Context, _ string, r StageResult, _ *State) {
	m.rec.ObserveStage(r.Stage, r.Outcome(), r.Attempts, r.Duration)
}

func (m *MetricsObserver) InterviewEvent(_ context.Context, _ string, ev interview.Event) {
	m.rec.ObserveInterviewStep(string(ev.Step), ev.Degraded)
	if ev.Step == interview.StepSearch {
		m.rec.ObserveSearchBatch(ev.Degraded)
	}
}

func (m *MetricsObserver) RunFinished(_ context.Context, _ *State, status string, _ error) {
	m.rec.RunFinished(status)
}
