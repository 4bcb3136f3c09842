package planning

import (
	"context"
	"fmt"
	"strings"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/templates"
)

// PlanGenerator compiles the final transformation plan.
type PlanGenerator struct {
	generator
}

// NewPlanGenerator creates a generator. A nil renderer uses the embedded prompts.
func NewPlanGenerator(client llm.LLMClient, renderer *templates.Renderer) *PlanGenerator {
	return &PlanGenerator{newGenerator(client, renderer, "plan")}
}

// FormatRecommendations renders recommendations for the plan prompt.
func FormatRecommendations(recs []domain.Recommendation) string {
	blocks := make([]string, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		blocks = append(blocks, fmt.Sprintf(
			"## %s\nDetails: %s\nRationale: %s\nImplementation Steps: %s\nImpact: %s\nEffort: %s\nPriority: %s",
			rec.Title, rec.Details, rec.Rationale, strings.Join(rec.ImplementationSteps, ", "),
			rec.EstimatedImpact, rec.EstimatedEffort, rec.Priority))
	}
	return strings.Join(blocks, "\n\n")
}

// Generate compiles the plan. Whatever the model returns for recommendations is
// discarded; the plan carries recs exactly as given.
func (p *PlanGenerator) Generate(ctx context.Context, company *domain.CompanyProfile, recs []domain.Recommendation, maturitySummary string) (*domain.TransformationPlan, error) {
	data := promptData(company, maturitySummary)
	data.Recommendations = FormatRecommendations(recs)

	var plan domain.TransformationPlan
	if err := p.completeJSON(ctx, templates.PlanTemplate, data, llm.TemperatureDefault, &plan); err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}
	if strings.TrimSpace(plan.Title) == "" && strings.TrimSpace(plan.ExecutiveSummary) == "" {
		return nil, fmt.Errorf("generate plan: %w", ErrEmptyResult)
	}
	plan.Recommendations = recs
	p.logger.Info("compiled transformation plan %q with %d recommendations", plan.Title, len(recs))
	return &plan, nil
}
