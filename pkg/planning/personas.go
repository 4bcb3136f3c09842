package planning

import (
	"context"
	"fmt"
	"strings"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/dialogue"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/templates"
)

// PersonaGenerator creates the expert personas that will be interviewed.
type PersonaGenerator struct {
	generator
}

// NewPersonaGenerator creates a generator. A nil renderer uses the embedded prompts.
func NewPersonaGenerator(client llm.LLMClient, renderer *templates.Renderer) *PersonaGenerator {
	return &PersonaGenerator{newGenerator(client, renderer, "personas")}
}

// Generate asks for n personas (DefaultExperts when n < 1) covering the aspects.
// The result is trimmed to n and every persona has a distinct interview identity.
func (p *PersonaGenerator) Generate(ctx context.Context, company *domain.CompanyProfile, aspects []domain.Aspect, maturitySummary string, n int) ([]domain.ExpertPersona, error) {
	if n < 1 {
		n = DefaultExperts
	}
	data := promptData(company, maturitySummary)
	data.Aspects = FormatAspects(aspects)
	data.Count = n

	var out struct {
		Experts []domain.ExpertPersona `json:"experts"`
	}
	if err := p.completeJSON(ctx, templates.PersonasTemplate, data, llm.TemperatureCreative, &out); err != nil {
		return nil, fmt.Errorf("generate personas: %w", err)
	}
	if len(out.Experts) == 0 {
		return nil, fmt.Errorf("generate personas: %w", ErrEmptyResult)
	}
	if len(out.Experts) > n {
		out.Experts = out.Experts[:n]
	}

	experts := DedupePersonas(out.Experts)
	for _, e := range experts {
		p.logger.Debug("persona %s (%s)", e.Name, e.ExpertiseArea)
	}
	p.logger.Info("generated %d expert personas for %s", len(experts), company.Name)
	return experts, nil
}

// DedupePersonas makes interview identities unique. A persona whose normalized
// name is empty, already taken, or equal to the consultant's gets a numeric suffix.
func DedupePersonas(in []domain.ExpertPersona) []domain.ExpertPersona {
	out := make([]domain.ExpertPersona, 0, len(in))
	seen := make(map[string]bool, len(in)+1)
	seen[dialogue.ConsultantIdentity] = true
	for i, e := range in {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			e.Name = fmt.Sprintf("Expert %d", i+1)
		}
		base := e.Name
		for n := 2; seen[dialogue.NormalizeIdentity(e.Name)]; n++ {
			e.Name = fmt.Sprintf("%s %d", base, n)
		}
		seen[dialogue.NormalizeIdentity(e.Name)] = true
		out = append(out, e)
	}
	return out
}
