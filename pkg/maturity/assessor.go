package maturity

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/templates"
)

// Fallback scores used when a dimension cannot be assessed.
const (
	FallbackCurrentScore = 2.0
	FallbackTargetScore  = 3.0
	FallbackArea         = "Unable to assess - insufficient data"
)

// Assessor scores every dimension with one completion each.
type Assessor struct {
	client   llm.LLMClient
	renderer *templates.Renderer
	logger   *logx.Logger
	parallel int
}

// NewAssessor creates an assessor. parallel bounds concurrent dimension calls;
// values below 1 assess one dimension at a time.
func NewAssessor(client llm.LLMClient, renderer *templates.Renderer, parallel int) *Assessor {
	if renderer == nil {
		renderer = templates.MustNewRenderer()
	}
	return &Assessor{
		client:   client,
		renderer: renderer,
		logger:   logx.NewLogger("maturity"),
		parallel: max(parallel, 1),
	}
}

type dimensionScore struct {
	CurrentScore     float64  `json:"current_score"`
	TargetScore      float64  `json:"target_score"`
	ImprovementAreas []string `json:"improvement_areas"`
}

// Assess scores all dimensions. A failed dimension gets the fallback scores;
// the only error is context cancellation.
func (a *Assessor) Assess(ctx context.Context, company *domain.CompanyProfile) (*Assessment, error) {
	benchmark := BenchmarkFor(company.Industry)
	a.logger.Info("assessing maturity for %s using %s benchmark", company.Name, benchmark.Industry)

	results := make([]DimensionResult, len(Dimensions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallel)
	for i, dim := range Dimensions {
		g.Go(func() error {
			results[i] = a.evaluate(gctx, dim, company, benchmark)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("maturity assessment cancelled: %w", err)
	}

	assessment := NewAssessment(results, benchmark)
	a.logger.Info("maturity assessment complete: %s (%.1f/5.0)", assessment.MaturityLevel, assessment.OverallScore)
	return assessment, nil
}

func (a *Assessor) evaluate(ctx context.Context, dim Dimension, company *domain.CompanyProfile, benchmark Benchmark) DimensionResult {
	result := DimensionResult{
		Name:              dim.Name,
		Description:       dim.Description,
		IndustryBenchmark: benchmark.DimensionAverage(dim.Name),
	}

	score, err := a.score(ctx, dim, company)
	if err != nil {
		a.logger.Warn("dimension %q failed, using fallback: %v", dim.Name, err)
		result.CurrentScore = FallbackCurrentScore
		result.TargetScore = FallbackTargetScore
		result.ImprovementAreas = []string{FallbackArea}
		result.Fallback = true
	} else {
		result.CurrentScore = ClampScore(score.CurrentScore)
		result.TargetScore = ClampScore(score.TargetScore)
		result.ImprovementAreas = score.ImprovementAreas
	}
	result.Gap = result.TargetScore - result.CurrentScore
	return result
}

func (a *Assessor) score(ctx context.Context, dim Dimension, company *domain.CompanyProfile) (dimensionScore, error) {
	data := templates.NewPromptData(company)
	data.Dimension = dim.Name
	data.DimensionDescription = dim.Description
	prompt, err := a.renderer.Render(templates.MaturityDimensionTemplate, data)
	if err != nil {
		return dimensionScore{}, err //nolint:wrapcheck // names the template
	}

	ctx = llm.WithCaller(ctx, llm.Caller{Actor: dim.Name})
	var out dimensionScore
	if err := llm.CompleteJSON(ctx, a.client, llm.NewJSONRequest(prompt.Messages()), &out); err != nil {
		return dimensionScore{}, err //nolint:wrapcheck // classified llm error
	}
	if out.CurrentScore == 0 && out.TargetScore == 0 {
		return dimensionScore{}, fmt.Errorf("dimension %q: response carried no scores", dim.Name)
	}
	return out, nil
}
