package technology

import (
	"fmt"
	"strings"
)

// Option is a catalog option evaluated for one company.
type Option struct {
	Name                     string   `json:"name"`
	Vendor                   string   `json:"vendor"`
	Description              string   `json:"description"`
	KeyFeatures              []string `json:"key_features"`
	Pros                     []string `json:"pros"`
	Cons                     []string `json:"cons"`
	CostRange                string   `json:"cost_range"`
	ImplementationComplexity string   `json:"implementation_complexity"`
	IntegrationNotes         string   `json:"integration_notes"`
	IndustryFitScore         int      `json:"industry_fit_score"`
	URL                      string   `json:"url,omitempty"`
}

// Category is a catalog category evaluated for one company.
type Category struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	RelevanceScore  int      `json:"relevance_score"`
	CurrentMaturity string   `json:"current_maturity"`
	TargetMaturity  string   `json:"target_maturity"`
	Options         []Option `json:"options"`
	Recommendations []string `json:"recommendations"`
}

// Phase is one step of the implementation roadmap.
type Phase struct {
	Name            string   `json:"phase_name"`
	Timeline        string   `json:"timeline"`
	Technologies    []string `json:"technologies"`
	Dependencies    []string `json:"dependencies"`
	KeyActivities   []string `json:"key_activities"`
	EstimatedEffort string   `json:"estimated_effort"`
}

// Risk pairs a risk with its mitigation.
type Risk struct {
	Risk       string `json:"risk"`
	Mitigation string `json:"mitigation"`
}

// Stack is the complete technology recommendation.
type Stack struct {
	ExecutiveSummary        string     `json:"executive_summary"`
	BusinessContext         string     `json:"business_context"`
	Categories              []Category `json:"categories"`
	Roadmap                 []Phase    `json:"roadmap"`
	TotalCostEstimate       string     `json:"total_cost_estimate"`
	ImplementationTimeframe string     `json:"implementation_timeframe"`
	KeyConsiderations       []string   `json:"key_considerations"`
	RiskFactors             []Risk     `json:"risk_factors"`
}

const markdownOptionsPerCategory = 3

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

// Markdown renders the stack as a standalone document.
func (s *Stack) Markdown() string {
	var b strings.Builder
	b.WriteString("# Technology Stack Recommendations\n\n")
	fmt.Fprintf(&b, "## Executive Summary\n\n%s\n\n", s.ExecutiveSummary)
	fmt.Fprintf(&b, "## Business Context\n\n%s\n\n", s.BusinessContext)

	b.WriteString("# Technology Categories\n")
	for i := range s.Categories {
		c := &s.Categories[i]
		fmt.Fprintf(&b, "\n## %s (Relevance: %d/10)\n\n%s\n\n", c.Name, c.RelevanceScore, c.Description)
		fmt.Fprintf(&b, "**Current Maturity:** %s\n**Target Maturity:** %s\n\n", c.CurrentMaturity, c.TargetMaturity)
		b.WriteString("### Recommended Technologies\n")
		for j, o := range c.Options {
			if j == markdownOptionsPerCategory {
				break
			}
			fmt.Fprintf(&b, "\n#### %s (%s)\n\n%s\n\n", o.Name, o.Vendor, o.Description)
			b.WriteString("**Key Features:**\n")
			writeBullets(&b, o.KeyFeatures)
			b.WriteString("\n**Pros:**\n")
			writeBullets(&b, o.Pros)
			b.WriteString("\n**Cons:**\n")
			writeBullets(&b, o.Cons)
			fmt.Fprintf(&b, "\n**Cost:** %s | **Complexity:** %s | **Industry Fit:** %d/10\n\n",
				o.CostRange, o.ImplementationComplexity, o.IndustryFitScore)
			fmt.Fprintf(&b, "**Integration Notes:** %s\n", o.IntegrationNotes)
		}
		b.WriteString("\n**Recommendations:**\n")
		writeBullets(&b, c.Recommendations)
	}

	b.WriteString("\n# Implementation Roadmap\n")
	for i := range s.Roadmap {
		p := &s.Roadmap[i]
		fmt.Fprintf(&b, "\n### Phase: %s (%s)\n\n", p.Name, p.Timeline)
		fmt.Fprintf(&b, "**Technologies:** %s\n\n", strings.Join(p.Technologies, ", "))
		b.WriteString("**Key Activities:**\n")
		writeBullets(&b, p.KeyActivities)
		fmt.Fprintf(&b, "\n**Dependencies:** %s\n\n", strings.Join(p.Dependencies, ", "))
		fmt.Fprintf(&b, "**Estimated Effort:** %s\n", p.EstimatedEffort)
	}

	fmt.Fprintf(&b, "\n## Total Cost Estimate\n\n%s\n\n", s.TotalCostEstimate)
	fmt.Fprintf(&b, "## Implementation Timeframe\n\n%s\n\n", s.ImplementationTimeframe)
	b.WriteString("## Key Considerations\n\n")
	writeBullets(&b, s.KeyConsiderations)
	b.WriteString("\n## Risk Factors\n\n")
	for _, r := range s.RiskFactors {
		fmt.Fprintf(&b, "- **%s**: %s\n", r.Risk, r.Mitigation)
	}
	return b.String()
}

// Summary is the short form handed to downstream prompts.
func (s *Stack) Summary() string {
	var b strings.Builder
	for i := range s.Categories {
		c := &s.Categories[i]
		top := "no options"
		if len(c.Options) > 0 {
			top = c.Options[0].Name
		}
		fmt.Fprintf(&b, "- %s (relevance %d/10, %s to %s): %s\n", c.Name, c.RelevanceScore, c.CurrentMaturity, c.TargetMaturity, top)
	}
	for i := range s.Roadmap {
		p := &s.Roadmap[i]
		fmt.Fprintf(&b, "Phase %s (%s): %s\n", p.Name, p.Timeline, strings.Join(p.Technologies, ", "))
	}
	return b.String()
}
