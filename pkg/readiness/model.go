// Package readiness assesses how prepared an organization is to carry out its
// transformation plan.
package readiness

import (
	"fmt"
	"sort"
	"strings"
)

// SkillGap is a capability the organization lacks.
type SkillGap struct {
	SkillArea               string   `json:"skill_area"`
	CurrentProficiency      float64  `json:"current_proficiency"`
	RequiredProficiency     float64  `json:"required_proficiency"`
	GapScore                float64  `json:"gap_score"`
	ImpactLevel             string   `json:"impact_level"`
	AffectedRoles           []string `json:"affected_roles"`
	TrainingRecommendations []string `json:"training_recommendations"`
}

// CulturalFactor is an aspect of culture that helps or hinders change.
type CulturalFactor struct {
	FactorName            string   `json:"factor_name"`
	CurrentState          string   `json:"current_state"`
	TargetState           string   `json:"target_state"`
	AlignmentScore        float64  `json:"alignment_score"`
	ImprovementStrategies []string `json:"improvement_strategies"`
	PotentialBarriers     []string `json:"potential_barriers"`
}

// ChangeMetric measures one facet of readiness for change.
type ChangeMetric struct {
	MetricName         string   `json:"metric_name"`
	Score              float64  `json:"score"`
	Interpretation     string   `json:"interpretation"`
	RiskLevel          string   `json:"risk_level"`
	ImprovementActions []string `json:"improvement_actions"`
}

// TrainingNeed is a training program the organization should run.
type TrainingNeed struct {
	Topic                   string   `json:"topic"`
	Priority                string   `json:"priority"`
	TargetAudience          []string `json:"target_audience"`
	DeliveryMethods         []string `json:"delivery_methods"`
	EstimatedDuration       string   `json:"estimated_duration"`
	Prerequisites           []string `json:"prerequisites"`
	ExpectedOutcomes        []string `json:"expected_outcomes"`
	AlignmentWithTechnology []string `json:"alignment_with_technology"`
}

// Leadership scores leadership readiness on four 0-1 metrics.
type Leadership struct {
	VisionClarity              float64  `json:"vision_clarity"`
	CommitmentLevel            float64  `json:"commitment_level"`
	DigitalFluency             float64  `json:"digital_fluency"`
	ChangeManagementCapability float64  `json:"change_management_capability"`
	Strengths                  []string `json:"strengths"`
	DevelopmentAreas           []string `json:"development_areas"`
	Recommendations            []string `json:"recommendations"`
}

// Score is the mean of the four leadership metrics.
func (l *Leadership) Score() float64 {
	return (l.VisionClarity + l.CommitmentLevel + l.DigitalFluency + l.ChangeManagementCapability) / 4
}

// Assessment is the complete readiness result.
type Assessment struct {
	ExecutiveSummary       string             `json:"executive_summary"`
	OverallScore           float64            `json:"overall_readiness_score"`
	SkillGaps              []SkillGap         `json:"skill_gaps"`
	CulturalFactors        []CulturalFactor   `json:"cultural_factors"`
	ChangeMetrics          []ChangeMetric     `json:"change_readiness_metrics"`
	TrainingNeeds          []TrainingNeed     `json:"training_needs"`
	Leadership             Leadership         `json:"leadership_readiness"`
	KeyRecommendations     []string           `json:"key_recommendations"`
	DepartmentReadiness    map[string]float64 `json:"readiness_by_department"`
	PriorityActions        []string           `json:"priority_actions"`
	TimelineForReadiness   string             `json:"timeline_for_readiness"`
	FallbackSubAssessments []string           `json:"fallback_sub_assessments,omitempty"`
}

// Weights of the sub-scores in the overall score.
const (
	WeightLeadership = 0.25
	WeightCultural   = 0.20
	WeightSkills     = 0.20
	WeightChange     = 0.15
	WeightDepartment = 0.20
)

func mean[T any](items []T, value func(T) float64) float64 {
	if len(items) == 0 {
		return 0
	}
	var total float64
	for _, it := range items {
		total += value(it)
	}
	return total / float64(len(items))
}

// CulturalScore is the mean alignment across cultural factors.
func CulturalScore(factors []CulturalFactor) float64 {
	return mean(factors, func(f CulturalFactor) float64 { return f.AlignmentScore })
}

// SkillsScore is the mean of 1 - gap across skill gaps.
func SkillsScore(gaps []SkillGap) float64 {
	return mean(gaps, func(g SkillGap) float64 { return 1 - g.GapScore })
}

// ChangeScore is the mean change readiness metric.
func ChangeScore(metrics []ChangeMetric) float64 {
	return mean(metrics, func(m ChangeMetric) float64 { return m.Score })
}

// DepartmentScore is the mean readiness across departments.
func DepartmentScore(departments map[string]float64) float64 {
	if len(departments) == 0 {
		return 0
	}
	var total float64
	for _, v := range departments {
		total += v
	}
	return total / float64(len(departments))
}

// OverallScore combines the five sub-scores and clamps the result to [0, 1].
func OverallScore(a *Assessment) float64 {
	score := WeightLeadership*a.Leadership.Score() +
		WeightCultural*CulturalScore(a.CulturalFactors) +
		WeightSkills*SkillsScore(a.SkillGaps) +
		WeightChange*ChangeScore(a.ChangeMetrics) +
		WeightDepartment*DepartmentScore(a.DepartmentReadiness)
	return min(max(score, 0), 1)
}

const maxDerivedActions = 10

// PriorityActions returns the key recommendations, or when there are none the
// first ten leadership, cultural and change actions.
func PriorityActions(a *Assessment) []string {
	if len(a.KeyRecommendations) > 0 {
		return append([]string(nil), a.KeyRecommendations...)
	}
	var all []string
	all = append(all, a.Leadership.Recommendations...)
	for _, f := range a.CulturalFactors {
		all = append(all, f.ImprovementStrategies...)
	}
	for _, m := range a.ChangeMetrics {
		all = append(all, m.ImprovementActions...)
	}
	if len(all) > maxDerivedActions {
		all = all[:maxDerivedActions]
	}
	return all
}

const markdownSkillGaps = 5

func writeNumbered(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}

// Markdown renders the assessment as a standalone document.
func (a *Assessment) Markdown() string {
	var b strings.Builder
	b.WriteString("# Organizational Readiness Assessment\n\n")
	fmt.Fprintf(&b, "## Executive Summary\n%s\n\n", a.ExecutiveSummary)
	fmt.Fprintf(&b, "## Overall Readiness Score: %.2f / 1.0\n\n", a.OverallScore)

	b.WriteString("## Key Recommendations\n")
	writeNumbered(&b, a.KeyRecommendations)

	b.WriteString("\n## Readiness by Department\n")
	depts := make([]string, 0, len(a.DepartmentReadiness))
	for d := range a.DepartmentReadiness {
		depts = append(depts, d)
	}
	sort.Slice(depts, func(i, j int) bool {
		si, sj := a.DepartmentReadiness[depts[i]], a.DepartmentReadiness[depts[j]]
		if si != sj {
			return si > sj
		}
		return depts[i] < depts[j]
	})
	for _, d := range depts {
		fmt.Fprintf(&b, "- **%s**: %.2f / 1.0\n", d, a.DepartmentReadiness[d])
	}

	l := &a.Leadership
	b.WriteString("\n## Leadership Readiness\n")
	fmt.Fprintf(&b, "- Vision Clarity: %.2f / 1.0\n", l.VisionClarity)
	fmt.Fprintf(&b, "- Commitment Level: %.2f / 1.0\n", l.CommitmentLevel)
	fmt.Fprintf(&b, "- Digital Fluency: %.2f / 1.0\n", l.DigitalFluency)
	fmt.Fprintf(&b, "- Change Management Capability: %.2f / 1.0\n\n", l.ChangeManagementCapability)
	b.WriteString("### Leadership Strengths\n")
	for _, s := range l.Strengths {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n### Leadership Development Areas\n")
	for _, s := range l.DevelopmentAreas {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\n## Top Skill Gaps\n")
	gaps := append([]SkillGap(nil), a.SkillGaps...)
	sort.SliceStable(gaps, func(i, j int) bool { return gaps[i].GapScore > gaps[j].GapScore })
	for i := 0; i < len(gaps) && i < markdownSkillGaps; i++ {
		g := &gaps[i]
		fmt.Fprintf(&b, "### %s (Gap: %.2f)\n", g.SkillArea, g.GapScore)
		fmt.Fprintf(&b, "- Current Proficiency: %.2f / Required: %.2f\n", g.CurrentProficiency, g.RequiredProficiency)
		fmt.Fprintf(&b, "- Impact Level: %s\n", g.ImpactLevel)
		fmt.Fprintf(&b, "- Affected Roles: %s\n", strings.Join(g.AffectedRoles, ", "))
		fmt.Fprintf(&b, "- Training Recommendations: %s\n\n", strings.Join(g.TrainingRecommendations, ", "))
	}

	b.WriteString("## Cultural Factors\n")
	factors := append([]CulturalFactor(nil), a.CulturalFactors...)
	sort.SliceStable(factors, func(i, j int) bool { return factors[i].AlignmentScore < factors[j].AlignmentScore })
	for i := range factors {
		f := &factors[i]
		fmt.Fprintf(&b, "### %s (Alignment: %.2f)\n", f.FactorName, f.AlignmentScore)
		fmt.Fprintf(&b, "- Current State: %s\n", f.CurrentState)
		fmt.Fprintf(&b, "- Target State: %s\n", f.TargetState)
		fmt.Fprintf(&b, "- Improvement Strategies: %s\n\n", strings.Join(f.ImprovementStrategies, ", "))
	}

	b.WriteString("## Priority Training Needs\n")
	for i := range a.TrainingNeeds {
		t := &a.TrainingNeeds[i]
		if !strings.EqualFold(t.Priority, "High") {
			continue
		}
		fmt.Fprintf(&b, "### %s (Priority: %s)\n", t.Topic, t.Priority)
		fmt.Fprintf(&b, "- Target Audience: %s\n", strings.Join(t.TargetAudience, ", "))
		fmt.Fprintf(&b, "- Delivery Methods: %s\n", strings.Join(t.DeliveryMethods, ", "))
		fmt.Fprintf(&b, "- Duration: %s\n", t.EstimatedDuration)
		fmt.Fprintf(&b, "- Expected Outcomes: %s\n\n", strings.Join(t.ExpectedOutcomes, ", "))
	}

	fmt.Fprintf(&b, "## Timeline for Readiness\n%s\n\n", a.TimelineForReadiness)
	b.WriteString("## Priority Actions\n")
	writeNumbered(&b, a.PriorityActions)
	return b.String()
}
