package domain

import (
	"fmt"
	"strings"
)

// Aspect is a named focus area of the transformation.
type Aspect struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ExpertPersona is a generated expert identity used to ground one interview.
type ExpertPersona struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	ExpertiseArea string `json:"expertise_area"`
	Description   string `json:"description"`
}

// String renders the persona block used in interview prompts.
func (p ExpertPersona) String() string {
	return fmt.Sprintf("Name: %s\nRole: %s\nExpertise Area: %s\nDescription: %s\n",
		p.Name, p.Role, p.ExpertiseArea, p.Description)
}

// Recommendation is one synthesized action item.
type Recommendation struct {
	Title               string            `json:"title"`
	Details             string            `json:"details"`
	Rationale           string            `json:"rationale"`
	ImplementationSteps []string          `json:"implementation_steps"`
	EstimatedImpact     string            `json:"estimated_impact"`
	EstimatedEffort     string            `json:"estimated_effort"`
	Priority            string            `json:"priority"`
	References          map[string]string `json:"references,omitempty"` // url -> excerpt
}

// TransformationPlan is the final deliverable of a run.
type TransformationPlan struct {
	Title                 string           `json:"title"`
	ExecutiveSummary      string           `json:"executive_summary"`
	BusinessContext       string           `json:"business_context"`
	Recommendations       []Recommendation `json:"recommendations"`
	ImplementationRoadmap string           `json:"implementation_roadmap"`
	SuccessMetrics        []string         `json:"success_metrics"`
}

// Markdown renders the plan as a single document.
func (p *TransformationPlan) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", p.ExecutiveSummary)
	fmt.Fprintf(&b, "## Business Context\n\n%s\n\n", p.BusinessContext)

	b.WriteString("# Recommendations\n\n")
	for i := range p.Recommendations {
		rec := &p.Recommendations[i]
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", rec.Title, rec.Details)
		fmt.Fprintf(&b, "Rationale: %s\n\n", rec.Rationale)
		fmt.Fprintf(&b, "Priority: %s | Impact: %s | Effort: %s\n\n", rec.Priority, rec.EstimatedImpact, rec.EstimatedEffort)
		b.WriteString("Implementation Steps:\n")
		for _, step := range rec.ImplementationSteps {
			fmt.Fprintf(&b, "- %s\n", step)
		}
		if len(rec.References) > 0 {
			b.WriteString("\nReferences:\n")
			for _, url := range SortedKeys(rec.References) {
				fmt.Fprintf(&b, "- %s\n", url)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Implementation Roadmap\n\n%s\n\n", p.ImplementationRoadmap)
	b.WriteString("## Success Metrics\n\n")
	for _, metric := range p.SuccessMetrics {
		fmt.Fprintf(&b, "- %s\n", metric)
	}
	return b.String()
}
