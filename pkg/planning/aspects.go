package planning

import (
	"context"
	"fmt"
	"strings"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/templates"
)

// AspectAnalyzer identifies the focus areas of a transformation.
type AspectAnalyzer struct {
	generator
}

// NewAspectAnalyzer creates an analyzer. A nil renderer uses the embedded prompts.
func NewAspectAnalyzer(client llm.LLMClient, renderer *templates.Renderer) *AspectAnalyzer {
	return &AspectAnalyzer{newGenerator(client, renderer, "aspects")}
}

// Identify asks for n aspects (DefaultAspects when n < 1). Aspects without a
// title are dropped and the result is trimmed to n.
func (a *AspectAnalyzer) Identify(ctx context.Context, company *domain.CompanyProfile, maturitySummary string, n int) ([]domain.Aspect, error) {
	if n < 1 {
		n = DefaultAspects
	}
	data := promptData(company, maturitySummary)
	data.Count = n

	var out struct {
		Aspects []domain.Aspect `json:"aspects"`
	}
	if err := a.completeJSON(ctx, templates.AspectsTemplate, data, llm.TemperatureDefault, &out); err != nil {
		return nil, fmt.Errorf("identify aspects: %w", err)
	}

	aspects := make([]domain.Aspect, 0, len(out.Aspects))
	for _, asp := range out.Aspects {
		if strings.TrimSpace(asp.Title) == "" {
			continue
		}
		aspects = append(aspects, asp)
		if len(aspects) == n {
			break
		}
	}
	if len(aspects) == 0 {
		return nil, fmt.Errorf("identify aspects: %w", ErrEmptyResult)
	}
	a.logger.Info("identified %d transformation aspects for %s", len(aspects), company.Name)
	return aspects, nil
}

// FormatAspects renders aspects as the bullet list used in prompts.
func FormatAspects(aspects []domain.Aspect) string {
	lines := make([]string, 0, len(aspects))
	for _, asp := range aspects {
		lines = append(lines, fmt.Sprintf("- %s: %s", asp.Title, asp.Description))
	}
	return strings.Join(lines, "\n")
}
