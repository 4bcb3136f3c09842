package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtplanner/pkg/agent/llmerrors"
	"dtplanner/pkg/agent/middleware/resilience/retry"
	"dtplanner/pkg/dialogue"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/interview"
	"dtplanner/pkg/metrics"
	"dtplanner/pkg/search"
	"dtplanner/pkg/testkit"
)

var acme = domain.CompanyProfile{
	Name:         "Acme",
	Description:  "Regional retail chain",
	Industry:     "Retail",
	Goals:        []string{"Improve customer experience"},
	Challenges:   []string{"Siloed customer data"},
	Technologies: []string{"Legacy POS"},
}

func fastPolicy() *retry.Policy {
	return retry.NewPolicy(retry.Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	}, StageRetryable)
}

type recordingObserver struct {
	NopObserver
	mu      sync.Mutex
	started []string
	results []StageResult
	events  int
	status  string
	err     error
}

func (r *recordingObserver) StageStarted(_ context.Context, _, stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, stage)
}

func (r *recordingObserver) StageFinished(_ context.Context, _ string, res StageResult, _ *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingObserver) InterviewEvent(context.Context, string, interview.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events++
}

func (r *recordingObserver) RunFinished(_ context.Context, _ *State, status string, err error) {
	r.status, r.err = status, err
}

func (r *recordingObserver) result(stage string) StageResult {
	for _, res := range r.results {
		if res.Stage == stage {
			return res
		}
	}
	return StageResult{}
}

func newScriptedComponents(t *testing.T) *Components {
	t.Helper()
	srv := testkit.MockGoogleSearchServer(testkit.ScriptedSearchItems())
	t.Cleanup(srv.Close)
	searcher := search.NewSearcher(search.NewGoogleProvider("key", "cx", 5*time.Second).WithEndpoint(srv.URL), 3)
	client := testkit.NewScriptedPlannerClient()

	c, err := NewComponents(Clients{Interview: client, Assessment: client, Planning: client}, searcher, nil, 2)
	require.NoError(t, err)
	c.MaxTurns = 2
	return c
}

func TestRunEndToEnd(t *testing.T) {
	obs := &recordingObserver{}
	o := NewOrchestrator(DefaultStages(newScriptedComponents(t)), WithRetryPolicy(fastPolicy()), WithObservers(obs))

	state, err := o.Run(context.Background(), "", acme)
	require.NoError(t, err)

	assert.NotEmpty(t, state.RunID)
	require.NotNil(t, state.Maturity)
	assert.InDelta(t, 2.5, state.Maturity.OverallScore, 1e-9)
	assert.Len(t, state.Aspects, 1)
	require.Len(t, state.Experts, 1)

	require.Len(t, state.Consultations, 1)
	transcript := state.Consultations[0]
	assert.Equal(t, 2, transcript.Count(dialogue.NormalizeIdentity("Dana Lee")))
	assert.Contains(t, transcript.References(), testkit.ScriptedCitationURL)
	dana := dialogue.NormalizeIdentity("Dana Lee")
	consultant := interview.ConsultantIdentity
	testkit.AssertSpeakers(t, transcript, consultant, consultant, dana, consultant, dana)

	require.Len(t, state.Recommendations, 2)
	assert.Contains(t, state.Recommendations[0].References, testkit.ScriptedCitationURL)
	testkit.AssertReferencesKnown(t, state.Recommendations, transcript.References())

	require.NotNil(t, state.Plan)
	assert.Equal(t, "Acme Digital 2027", state.Plan.Title)
	assert.Equal(t, state.Recommendations, state.Plan.Recommendations)
	assert.Same(t, &state.Recommendations[0], &state.Plan.Recommendations[0])

	require.NotNil(t, state.TechStack)
	assert.NotEmpty(t, state.TechStack.Categories)

	// Readiness prompts are unscripted, so every sub-assessment falls back.
	require.NotNil(t, state.Readiness)
	assert.NotEmpty(t, state.Readiness.FallbackSubAssessments)

	assert.Equal(t, o.Stages(), obs.started)
	require.Len(t, obs.results, 8)
	for _, res := range obs.results {
		assert.NoError(t, res.Err, res.Stage)
		assert.Equal(t, 1, res.Attempts, res.Stage)
	}
	assert.True(t, obs.result(StageReadiness).Degraded)
	assert.False(t, obs.result(StageInterviews).Degraded)
	assert.Positive(t, obs.events)
	assert.Equal(t, StatusDegraded, obs.status)

	report, err := state.Markdown(SectionReport)
	require.NoError(t, err)
	assert.Contains(t, report, "# Acme Digital 2027")
	assert.Contains(t, report, "# Technology Stack Recommendations")
}

func TestTechnologyStageComputesMissingMaturity(t *testing.T) {
	c := newScriptedComponents(t)
	state := NewState("r1", acme)

	require.NoError(t, c.recommendTechnology(context.Background(), state))
	assert.NotNil(t, state.TechStack)
	assert.Nil(t, state.Maturity, "maturity has a single writer")
}

func writeAspects(title string) Stage {
	return NewStage(StageAspects, func(_ context.Context, s *State) error {
		s.Aspects = append(s.Aspects, domain.Aspect{Title: title})
		return nil
	})
}

func TestContinueModeFailureIsSkipped(t *testing.T) {
	var ranAfter bool
	obs := &recordingObserver{}
	stages := []StageSpec{
		{Stage: writeAspects("Data"), Mode: Abort},
		{Stage: NewStage(StageTechnology, func(_ context.Context, s *State) error {
			s.TechStack = nil
			s.Aspects = nil
			return errors.New("catalog unavailable")
		}), Mode: Continue},
		{Stage: NewStage(StageReadiness, func(_ context.Context, s *State) error {
			ranAfter = true
			return nil
		}), Mode: Continue},
	}

	state, err := NewOrchestrator(stages, WithRetryPolicy(fastPolicy()), WithObservers(obs)).Run(context.Background(), "r1", acme)
	require.NoError(t, err)
	assert.True(t, ranAfter)
	assert.Nil(t, state.TechStack)
	assert.Len(t, state.Aspects, 1, "failed attempts leave the state unchanged")

	tech := obs.result(StageTechnology)
	assert.True(t, tech.Skipped)
	assert.Equal(t, 3, tech.Attempts)
	assert.Equal(t, metrics.OutcomeSkipped, tech.Outcome())
	assert.Equal(t, StatusDegraded, obs.status)
}

func TestAbortModeFailureStopsRun(t *testing.T) {
	var ranAfter bool
	obs := &recordingObserver{}
	stages := []StageSpec{
		{Stage: writeAspects("Data"), Mode: Abort},
		{Stage: NewStage(StagePersonas, func(context.Context, *State) error {
			return errors.New("model returned garbage")
		}), Mode: Abort},
		{Stage: NewStage(StageInterviews, func(context.Context, *State) error {
			ranAfter = true
			return nil
		}), Mode: Abort},
	}

	state, err := NewOrchestrator(stages, WithRetryPolicy(fastPolicy()), WithObservers(obs)).Run(context.Background(), "r1", acme)
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePersonas, stageErr.Stage)
	assert.Equal(t, 3, stageErr.Attempts)
	assert.Contains(t, err.Error(), "stage personas failed after 3 attempt(s)")
	assert.False(t, ranAfter)

	require.NotNil(t, state)
	assert.Len(t, state.Aspects, 1)
	assert.Equal(t, StatusFailed, obs.status)
}

func TestRetryCommitsOnlySuccessfulAttempt(t *testing.T) {
	attempt := 0
	stage := NewStage(StageAspects, func(_ context.Context, s *State) error {
		attempt++
		s.Aspects = append(s.Aspects, domain.Aspect{Title: fmt.Sprintf("attempt %d", attempt)})
		if attempt == 1 {
			return errors.New("transient")
		}
		return nil
	})

	state, err := NewOrchestrator([]StageSpec{{Stage: stage, Mode: Abort}}, WithRetryPolicy(fastPolicy())).
		Run(context.Background(), "r1", acme)
	require.NoError(t, err)
	assert.Equal(t, []domain.Aspect{{Title: "attempt 2"}}, state.Aspects)
}

func TestAuthErrorIsNotRetried(t *testing.T) {
	calls := 0
	stage := NewStage(StageMaturity, func(context.Context, *State) error {
		calls++
		return llmerrors.NewError(llmerrors.ErrorTypeAuth, "invalid api key")
	})

	_, err := NewOrchestrator([]StageSpec{{Stage: stage, Mode: Abort}}, WithRetryPolicy(fastPolicy())).
		Run(context.Background(), "r1", acme)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, llmerrors.Is(err, llmerrors.ErrorTypeAuth))
}

func TestStageTimeoutIsRetried(t *testing.T) {
	calls := 0
	stage := NewStage(StagePlan, func(ctx context.Context, _ *State) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	_, err := NewOrchestrator([]StageSpec{{Stage: stage, Mode: Abort}},
		WithRetryPolicy(fastPolicy()), WithStageTimeout(20*time.Millisecond)).Run(context.Background(), "r1", acme)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCancelledRunIsNotSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stage := NewStage(StageReadiness, func(context.Context, *State) error {
		cancel()
		return context.Canceled
	})

	_, err := NewOrchestrator([]StageSpec{{Stage: stage, Mode: Continue}}, WithRetryPolicy(fastPolicy())).Run(ctx, "r1", acme)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsInvalidCompany(t *testing.T) {
	_, err := NewOrchestrator(nil).Run(context.Background(), "", domain.CompanyProfile{Name: "Acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "industry")
}

func TestExhaustedClientRetriesAreNotRetriedByStage(t *testing.T) {
	var calls int
	obs := &recordingObserver{}
	stages := []StageSpec{
		{Stage: NewStage(StagePlan, func(context.Context, *State) error {
			calls++
			return fmt.Errorf("plan generation: %w", llmerrors.NewServiceUnavailableError(errors.New("503"), 3))
		}), Mode: Abort},
	}

	_, err := NewOrchestrator(stages, WithRetryPolicy(fastPolicy()), WithObservers(obs)).Run(context.Background(), "r1", acme)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, obs.result(StagePlan).Attempts)
}

func TestStageRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), true},
		{"parse", llmerrors.NewParseError(errors.New("bad json"), "{"), true},
		{"transient", llmerrors.NewError(llmerrors.ErrorTypeTransient, "503"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", fmt.Errorf("wrapped: %w", context.Canceled), false},
		{"auth", llmerrors.NewError(llmerrors.ErrorTypeAuth, "denied"), false},
		{"bad prompt", llmerrors.NewError(llmerrors.ErrorTypeBadPrompt, "too long"), false},
		{"client retries exhausted", llmerrors.NewServiceUnavailableError(errors.New("503"), 3), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StageRetryable(tt.err); got != tt.want {
				t.Errorf("StageRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMetricsObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewMetricsObserver(metrics.NewPipelineRecorder(reg))

	stages := []StageSpec{
		{Stage: writeAspects("Data"), Mode: Abort},
		{Stage: NewStage(StageTechnology, func(context.Context, *State) error { return errors.New("down") }), Mode: Continue},
	}
	_, err := NewOrchestrator(stages, WithRetryPolicy(fastPolicy()), WithObservers(obs)).Run(context.Background(), "r1", acme)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, `dtplanner_runs_total{status="degraded"} 1`)
	assert.Contains(t, out, `dtplanner_stage_attempts_total{stage="technology"} 3`)
	assert.Contains(t, out, `dtplanner_active_runs 0`)
}

func TestMarkdownSections(t *testing.T) {
	s := NewState("r1", acme)
	_, err := s.Markdown(SectionPlan)
	require.Error(t, err)
	_, err = s.Markdown("appendix")
	require.Error(t, err)

	s.Plan = &domain.TransformationPlan{Title: "Acme Plan"}
	md, err := s.Markdown(SectionReport)
	require.NoError(t, err)
	assert.Contains(t, md, "Acme Plan")
}
