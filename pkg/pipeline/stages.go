package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/dialogue"
	"dtplanner/pkg/interview"
	"dtplanner/pkg/maturity"
	"dtplanner/pkg/planning"
	"dtplanner/pkg/readiness"
	"dtplanner/pkg/search"
	"dtplanner/pkg/technology"
	"dtplanner/pkg/templates"
)

// Components is everything the default stages call into.
type Components struct {
	Maturity        *maturity.Assessor
	Aspects         *planning.AspectAnalyzer
	Personas        *planning.PersonaGenerator
	Recommendations *planning.RecommendationGenerator
	Plan            *planning.PlanGenerator
	Technology      *technology.Recommender
	Readiness       *readiness.Assessor

	// Interviews are built per run so each run gets its own event hook.
	Questioner  llm.LLMClient
	Expert      llm.LLMClient
	Searcher    *search.Searcher
	Renderer    *templates.Renderer
	MaxTurns    int
	MaxParallel int

	NumAspects int
	NumExperts int
}

// Clients selects the model client for each workload.
type Clients struct {
	Interview  llm.LLMClient
	Assessment llm.LLMClient
	Planning   llm.LLMClient
}

// NewComponents wires the stage components over clients.
func NewComponents(clients Clients, searcher *search.Searcher, renderer *templates.Renderer, assessmentParallel int) (*Components, error) {
	if renderer == nil {
		renderer = templates.MustNewRenderer()
	}
	recommender, err := technology.NewRecommender(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load technology catalog: %w", err)
	}
	return &Components{
		Maturity:        maturity.NewAssessor(clients.Assessment, renderer, assessmentParallel),
		Aspects:         planning.NewAspectAnalyzer(clients.Planning, renderer),
		Personas:        planning.NewPersonaGenerator(clients.Planning, renderer),
		Recommendations: planning.NewRecommendationGenerator(clients.Planning, renderer),
		Plan:            planning.NewPlanGenerator(clients.Planning, renderer),
		Technology:      recommender,
		Readiness:       readiness.NewAssessor(clients.Assessment, renderer),
		Questioner:      clients.Interview,
		Expert:          clients.Interview,
		Searcher:        searcher,
		Renderer:        renderer,
		MaxTurns:        interview.DefaultMaxTurns,
		NumAspects:      planning.DefaultAspects,
		NumExperts:      planning.DefaultExperts,
	}, nil
}

// stageFunc adapts a function to Stage.
type stageFunc struct {
	name     string
	run      func(ctx context.Context, s *State) error
	degraded func(s *State) bool
}

func (f *stageFunc) Name() string { return f.name }

func (f *stageFunc) Run(ctx context.Context, s *State) error { return f.run(ctx, s) }

func (f *stageFunc) Degraded(s *State) bool {
	return f.degraded != nil && f.degraded(s)
}

// NewStage builds a stage from a function.
func NewStage(name string, run func(ctx context.Context, s *State) error) Stage {
	return &stageFunc{name: name, run: run}
}

// DefaultStages returns the eight planning stages in order.
func DefaultStages(c *Components) []StageSpec {
	return []StageSpec{
		{Stage: &stageFunc{name: StageMaturity, run: c.assessMaturity, degraded: maturityDegraded}, Mode: Abort},
		{Stage: &stageFunc{name: StageAspects, run: c.identifyAspects}, Mode: Abort},
		{Stage: &stageFunc{name: StagePersonas, run: c.generatePersonas}, Mode: Abort},
		{Stage: &stageFunc{name: StageInterviews, run: c.runInterviews, degraded: interviewsDegraded}, Mode: Abort},
		{Stage: &stageFunc{name: StageRecommendations, run: c.generateRecommendations}, Mode: Abort},
		{Stage: &stageFunc{name: StagePlan, run: c.compilePlan}, Mode: Abort},
		{Stage: &stageFunc{name: StageTechnology, run: c.recommendTechnology}, Mode: Continue},
		{Stage: &stageFunc{name: StageReadiness, run: c.assessReadiness, degraded: readinessDegraded}, Mode: Continue},
	}
}

func (c *Components) assessMaturity(ctx context.Context, s *State) error {
	m, err := c.Maturity.Assess(ctx, &s.Company)
	if err != nil {
		return err //nolint:wrapcheck // stage error carries the stage name
	}
	s.Maturity = m
	return nil
}

func maturityDegraded(s *State) bool {
	if s.Maturity == nil {
		return false
	}
	for _, d := range s.Maturity.Dimensions {
		if d.Fallback {
			return true
		}
	}
	return false
}

func (c *Components) identifyAspects(ctx context.Context, s *State) error {
	aspects, err := c.Aspects.Identify(ctx, &s.Company, s.MaturitySummary(), c.NumAspects)
	if err != nil {
		return err //nolint:wrapcheck // stage error carries the stage name
	}
	s.Aspects = aspects
	return nil
}

func (c *Components) generatePersonas(ctx context.Context, s *State) error {
	experts, err := c.Personas.Generate(ctx, &s.Company, s.Aspects, s.MaturitySummary(), c.NumExperts)
	if err != nil {
		return err //nolint:wrapcheck // stage error carries the stage name
	}
	s.Experts = experts
	return nil
}

func (c *Components) runInterviews(ctx context.Context, s *State) error {
	if len(s.Experts) == 0 {
		return errors.New("no expert personas to interview")
	}
	iv := interview.NewInterviewer(c.Questioner, c.Expert, c.Searcher,
		interview.WithMaxTurns(c.MaxTurns),
		interview.WithMaxParallel(c.MaxParallel),
		interview.WithRenderer(c.Renderer),
		interview.WithHook(interviewHookFrom(ctx)),
	)
	transcripts, err := iv.RunAll(ctx, s.Experts, &s.Company)
	if err != nil {
		return err //nolint:wrapcheck // only cancellation reaches here
	}
	s.Consultations = transcripts
	return nil
}

func interviewsDegraded(s *State) bool {
	for _, t := range s.Consultations {
		if transcriptUsedFallback(t) {
			return true
		}
	}
	return false
}

func transcriptUsedFallback(t *dialogue.Transcript) bool {
	for _, m := range t.Messages() {
		switch {
		case m.Content == interview.FallbackQuestion,
			strings.HasPrefix(m.Content, interview.FallbackAnswer),
			strings.HasPrefix(m.Content, interview.NoSearchFallbackAnswer):
			return true
		}
	}
	return false
}

func (c *Components) generateRecommendations(ctx context.Context, s *State) error {
	recs, err := c.Recommendations.Generate(ctx, &s.Company, s.Consultations, s.MaturitySummary())
	if err != nil {
		return err //nolint:wrapcheck // stage error carries the stage name
	}
	s.Recommendations = recs
	return nil
}

func (c *Components) compilePlan(ctx context.Context, s *State) error {
	plan, err := c.Plan.Generate(ctx, &s.Company, s.Recommendations, s.MaturitySummary())
	if err != nil {
		return err //nolint:wrapcheck // stage error carries the stage name
	}
	s.Plan = plan
	return nil
}

// recommendTechnology assesses maturity on the spot when stage one left it
// empty. The result is used locally and not written back.
func (c *Components) recommendTechnology(ctx context.Context, s *State) error {
	m := s.Maturity
	if m == nil {
		var err error
		if m, err = c.Maturity.Assess(ctx, &s.Company); err != nil {
			return fmt.Errorf("maturity assessment for technology stage: %w", err)
		}
	}
	stack, err := c.Technology.Recommend(&s.Company, m)
	if err != nil {
		return err //nolint:wrapcheck // stage error carries the stage name
	}
	s.TechStack = stack
	return nil
}

func (c *Components) assessReadiness(ctx context.Context, s *State) error {
	r, err := c.Readiness.Assess(ctx, &s.Company, s.Maturity, s.TechStack)
	if err != nil {
		return err //nolint:wrapcheck // stage error carries the stage name
	}
	s.Readiness = r
	return nil
}

func readinessDegraded(s *State) bool {
	return s.Readiness != nil && len(s.Readiness.FallbackSubAssessments) > 0
}

type hookKey struct{}

func withInterviewHook(ctx context.Context, h interview.Hook) context.Context {
	return context.WithValue(ctx, hookKey{}, h)
}

func interviewHookFrom(ctx context.Context) interview.Hook {
	h, _ := ctx.Value(hookKey{}).(interview.Hook)
	return h
}
