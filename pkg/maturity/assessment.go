// Package maturity scores a company's digital maturity across fixed dimensions.
package maturity

import (
	"fmt"
	"sort"
	"strings"
)

// Maturity level labels.
const (
	LevelInitial    = "Initial"
	LevelDeveloping = "Developing"
	LevelAdvanced   = "Advanced"
	LevelLeading    = "Leading"
)

const (
	minScore = 1.0
	maxScore = 5.0
	topN     = 3
)

// DimensionResult is the scored outcome of one dimension.
type DimensionResult struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	CurrentScore      float64  `json:"current_score"`
	TargetScore       float64  `json:"target_score"`
	IndustryBenchmark float64  `json:"industry_benchmark"`
	Gap               float64  `json:"gap"`
	ImprovementAreas  []string `json:"improvement_areas"`
	Fallback          bool     `json:"fallback,omitempty"`
}

// Assessment is the complete maturity result.
type Assessment struct {
	OverallScore    float64           `json:"overall_score"`
	IndustryAverage float64           `json:"industry_average"`
	Benchmark       string            `json:"benchmark"`
	Dimensions      []DimensionResult `json:"dimensions"`
	TopStrengths    []string          `json:"top_strengths"`
	TopGaps         []string          `json:"top_gaps"`
	MaturityLevel   string            `json:"maturity_level"`
}

// LevelFor maps an overall score to its label. Boundaries are inclusive.
func LevelFor(score float64) string {
	switch {
	case score >= 4.0:
		return LevelLeading
	case score >= 3.0:
		return LevelAdvanced
	case score >= 2.0:
		return LevelDeveloping
	default:
		return LevelInitial
	}
}

// ClampScore bounds a score to the 1-5 scale.
func ClampScore(v float64) float64 {
	return min(max(v, minScore), maxScore)
}

// NewAssessment aggregates dimension results. Results keep their given order.
func NewAssessment(results []DimensionResult, benchmark Benchmark) *Assessment {
	a := &Assessment{
		IndustryAverage: benchmark.OverallAverage,
		Benchmark:       benchmark.Industry,
		Dimensions:      results,
	}

	var total float64
	for i := range results {
		total += results[i].CurrentScore
	}
	if len(results) > 0 {
		a.OverallScore = total / float64(len(results))
	}
	a.MaturityLevel = LevelFor(a.OverallScore)

	byStrength := append([]DimensionResult(nil), results...)
	sort.SliceStable(byStrength, func(i, j int) bool { return byStrength[i].CurrentScore > byStrength[j].CurrentScore })
	for i := 0; i < len(byStrength) && i < topN; i++ {
		d := &byStrength[i]
		a.TopStrengths = append(a.TopStrengths, fmt.Sprintf("%s (%.1f/5.0): %s", d.Name, d.CurrentScore, d.Description))
	}

	byGap := append([]DimensionResult(nil), results...)
	sort.SliceStable(byGap, func(i, j int) bool { return byGap[i].Gap > byGap[j].Gap })
	for i := 0; i < len(byGap) && i < topN; i++ {
		d := &byGap[i]
		area := "Need improvement"
		if len(d.ImprovementAreas) > 0 {
			area = d.ImprovementAreas[0]
		}
		a.TopGaps = append(a.TopGaps, fmt.Sprintf("%s (Gap: %.1f): %s", d.Name, d.Gap, area))
	}
	return a
}

// Dimension returns the named dimension result.
func (a *Assessment) Dimension(name string) (DimensionResult, bool) {
	for i := range a.Dimensions {
		if a.Dimensions[i].Name == name {
			return a.Dimensions[i], true
		}
	}
	return DimensionResult{}, false
}

// Summary is the short form handed to downstream prompts.
func (a *Assessment) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall Maturity: %s (%.1f/5.0, industry average %.1f)\n", a.MaturityLevel, a.OverallScore, a.IndustryAverage)
	if len(a.TopStrengths) > 0 {
		fmt.Fprintf(&b, "Top Strengths: %s\n", strings.Join(a.TopStrengths, "; "))
	}
	if len(a.TopGaps) > 0 {
		fmt.Fprintf(&b, "Top Gaps: %s\n", strings.Join(a.TopGaps, "; "))
	}
	return b.String()
}

// Markdown renders the assessment as a standalone document.
func (a *Assessment) Markdown() string {
	var b strings.Builder
	b.WriteString("# Digital Transformation Maturity Assessment\n\n")
	fmt.Fprintf(&b, "## Overall Maturity: %s\n\n", a.MaturityLevel)
	fmt.Fprintf(&b, "Overall Score: %.1f/5.0 | Industry Average: %.1f/5.0 (%s)\n\n", a.OverallScore, a.IndustryAverage, a.Benchmark)

	b.WriteString("## Top Strengths\n\n")
	for _, s := range a.TopStrengths {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n## Top Gaps\n\n")
	for _, g := range a.TopGaps {
		fmt.Fprintf(&b, "- %s\n", g)
	}

	b.WriteString("\n# Detailed Dimension Analysis\n")
	for i := range a.Dimensions {
		d := &a.Dimensions[i]
		fmt.Fprintf(&b, "\n## %s\n\n%s\n\n", d.Name, d.Description)
		fmt.Fprintf(&b, "Current Score: %.1f/5.0 | Target: %.1f/5.0 | Industry Benchmark: %.1f/5.0\n\n",
			d.CurrentScore, d.TargetScore, d.IndustryBenchmark)
		fmt.Fprintf(&b, "Gap: %.1f points\n\n", d.Gap)
		b.WriteString("Improvement Areas:\n")
		for _, area := range d.ImprovementAreas {
			fmt.Fprintf(&b, "- %s\n", area)
		}
	}
	return b.String()
}
