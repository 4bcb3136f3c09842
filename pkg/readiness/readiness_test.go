package readiness

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtplanner/pkg/domain"
	"dtplanner/pkg/testkit"
)

const (
	skillsPrompt      = "identify skill gaps within an organization"
	culturePrompt     = "identify cultural factors that will affect"
	changePrompt      = "assess an organization's readiness for change"
	leadershipPrompt  = "assess an organization's leadership readiness"
	trainingPrompt    = "identify specific training needs"
	departmentsPrompt = "assess the readiness of different departments"
	recsPrompt        = "generate key recommendations and a timeline"
	summaryPrompt     = "create a concise, insightful executive summary"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOverallScoreWeights(t *testing.T) {
	a := &Assessment{
		Leadership:          Leadership{VisionClarity: 0.8, CommitmentLevel: 0.8, DigitalFluency: 0.8, ChangeManagementCapability: 0.8},
		CulturalFactors:     []CulturalFactor{{AlignmentScore: 0.4}, {AlignmentScore: 0.6}},
		SkillGaps:           []SkillGap{{GapScore: 0.2}, {GapScore: 0.4}},
		ChangeMetrics:       []ChangeMetric{{Score: 0.5}},
		DepartmentReadiness: map[string]float64{"IT": 1.0, "HR": 0.0},
	}
	want := 0.25*0.8 + 0.20*0.5 + 0.20*0.7 + 0.15*0.5 + 0.20*0.5
	if got := OverallScore(a); !almostEqual(got, want) {
		t.Errorf("OverallScore() = %v, want %v", got, want)
	}
}

func TestOverallScoreClamped(t *testing.T) {
	high := &Assessment{
		Leadership:          Leadership{VisionClarity: 1.5, CommitmentLevel: 1.5, DigitalFluency: 1.5, ChangeManagementCapability: 1.5},
		CulturalFactors:     []CulturalFactor{{AlignmentScore: 1.5}},
		SkillGaps:           []SkillGap{{GapScore: -0.5}},
		ChangeMetrics:       []ChangeMetric{{Score: 1.5}},
		DepartmentReadiness: map[string]float64{"IT": 1.5},
	}
	if got := OverallScore(high); got != 1.0 {
		t.Errorf("OverallScore(high) = %v, want 1.0", got)
	}

	low := &Assessment{
		Leadership:    Leadership{VisionClarity: -1, CommitmentLevel: -1, DigitalFluency: -1, ChangeManagementCapability: -1},
		SkillGaps:     []SkillGap{{GapScore: 2}},
		ChangeMetrics: []ChangeMetric{{Score: -1}},
	}
	if got := OverallScore(low); got != 0 {
		t.Errorf("OverallScore(low) = %v, want 0", got)
	}
}

func TestPriorityActions(t *testing.T) {
	a := &Assessment{KeyRecommendations: []string{"one", "two"}}
	assert.Equal(t, []string{"one", "two"}, PriorityActions(a))

	a = &Assessment{
		Leadership:      Leadership{Recommendations: []string{"l1", "l2", "l3", "l4"}},
		CulturalFactors: []CulturalFactor{{ImprovementStrategies: []string{"c1", "c2", "c3"}}},
		ChangeMetrics:   []ChangeMetric{{ImprovementActions: []string{"m1", "m2", "m3", "m4"}}},
	}
	got := PriorityActions(a)
	require.Len(t, got, 10)
	assert.Equal(t, "l1", got[0])
	assert.Equal(t, "c1", got[4])
	assert.Equal(t, "m3", got[9])
}

func company() *domain.CompanyProfile {
	c := domain.SampleCompany()
	return &c
}

func TestAssessAllFallbacks(t *testing.T) {
	client := testkit.NewMockLLMClient("mock").OnError("", errors.New("model offline"), 0)

	a, err := NewAssessor(client, nil).Assess(context.Background(), company(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, fallbackSkillGaps(), a.SkillGaps)
	assert.Equal(t, fallbackCulturalFactors(), a.CulturalFactors)
	assert.Equal(t, fallbackChangeMetrics(), a.ChangeMetrics)
	assert.Equal(t, fallbackLeadership(), a.Leadership)
	assert.Equal(t, fallbackTrainingNeeds(), a.TrainingNeeds)
	assert.Equal(t, fallbackDepartments(), a.DepartmentReadiness)
	assert.Equal(t, fallbackKeyRecommendations(), a.KeyRecommendations)
	assert.Equal(t, FallbackTimeline, a.TimelineForReadiness)
	assert.Equal(t, a.KeyRecommendations, a.PriorityActions)
	assert.Len(t, a.FallbackSubAssessments, 8)

	// 0.25*0.5 + 0.20*0.3 + 0.20*0.6 + 0.15*0.6 + 0.20*0.48
	want := 0.125 + 0.06 + 0.12 + 0.09 + 0.096
	assert.InDelta(t, want, a.OverallScore, 1e-9)
	assert.Contains(t, a.ExecutiveSummary, "HealthPlus Medical Group")
	assert.Contains(t, a.ExecutiveSummary, "0.49")
}

func TestAssessUsesModelOutput(t *testing.T) {
	client := testkit.NewMockLLMClient("mock").
		On(skillsPrompt, `{"skill_gaps": [{"skill_area": "Data Literacy", "current_proficiency": 0.3, "required_proficiency": 0.9, "gap_score": 0.6, "impact_level": "High", "affected_roles": ["Analysts"], "training_recommendations": ["SQL"]}]}`).
		On(culturePrompt, `{"cultural_factors": [{"factor_name": "Risk Aversion", "alignment_score": 0.4, "improvement_strategies": ["Pilot programs"]}]}`).
		On(changePrompt, "```json\n{\"metrics\": [{\"metric_name\": \"Urgency\", \"score\": 0.8, \"improvement_actions\": [\"Town halls\"]}]}\n```").
		On(leadershipPrompt, `{"vision_clarity": 0.9, "commitment_level": 0.9, "digital_fluency": 0.5, "change_management_capability": 0.7, "recommendations": ["Coaching"]}`).
		On(trainingPrompt, `{"training_needs": [{"topic": "Cloud 101", "priority": "High"}]}`).
		On(departmentsPrompt, `{"IT": 0.9, "Clinical": 0.4}`).
		On(recsPrompt, `{"key_recommendations": ["Start a data academy"], "timeline": "9 months"}`).
		On(summaryPrompt, "Readiness is moderate.")

	a, err := NewAssessor(client, nil).Assess(context.Background(), company(), nil, nil)
	require.NoError(t, err)

	assert.Empty(t, a.FallbackSubAssessments)
	assert.Equal(t, "Data Literacy", a.SkillGaps[0].SkillArea)
	assert.Equal(t, "Urgency", a.ChangeMetrics[0].MetricName)
	assert.Equal(t, map[string]float64{"IT": 0.9, "Clinical": 0.4}, a.DepartmentReadiness)
	assert.Equal(t, "9 months", a.TimelineForReadiness)
	assert.Equal(t, []string{"Start a data academy"}, a.PriorityActions)
	assert.Equal(t, "Readiness is moderate.", a.ExecutiveSummary)

	// Training and departments are grounded in the skill gaps.
	for _, req := range client.Calls() {
		if strings.Contains(req.Messages[0].Content, trainingPrompt) {
			assert.Contains(t, testkit.LastUserMessage(req), "Data Literacy")
		}
	}

	want := 0.25*0.75 + 0.20*0.4 + 0.20*0.4 + 0.15*0.8 + 0.20*0.65
	assert.InDelta(t, want, a.OverallScore, 1e-9)
}

func TestAssessEmptyListFallsBack(t *testing.T) {
	client := testkit.NewMockLLMClient("mock").
		On(skillsPrompt, `{"skill_gaps": []}`).
		On(departmentsPrompt, `{}`).
		Default(`{}`)

	a, err := NewAssessor(client, nil).Assess(context.Background(), company(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, fallbackSkillGaps(), a.SkillGaps)
	assert.Equal(t, fallbackDepartments(), a.DepartmentReadiness)
	assert.Contains(t, a.FallbackSubAssessments, SubSkills)
	assert.Contains(t, a.FallbackSubAssessments, SubDepartments)
}

func TestAssessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAssessor(testkit.NewMockLLMClient("mock").Default("{}"), nil).Assess(ctx, company(), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMarkdown(t *testing.T) {
	a := &Assessment{
		ExecutiveSummary:     "Summary text",
		OverallScore:         0.55,
		KeyRecommendations:   []string{"First", "Second"},
		DepartmentReadiness:  map[string]float64{"HR": 0.3, "IT": 0.7, "Finance": 0.7},
		Leadership:           fallbackLeadership(),
		SkillGaps:            []SkillGap{{SkillArea: "Low", GapScore: 0.1}, {SkillArea: "High", GapScore: 0.6}},
		CulturalFactors:      fallbackCulturalFactors(),
		TrainingNeeds:        []TrainingNeed{{Topic: "Cloud", Priority: "High"}, {Topic: "Optional", Priority: "Low"}},
		TimelineForReadiness: "1 year",
		PriorityActions:      []string{"Act"},
	}
	md := a.Markdown()

	assert.True(t, strings.HasPrefix(md, "# Organizational Readiness Assessment"))
	assert.Contains(t, md, "## Overall Readiness Score: 0.55 / 1.0")
	assert.Contains(t, md, "2. Second")
	assert.Less(t, strings.Index(md, "**Finance**"), strings.Index(md, "**IT**"))
	assert.Less(t, strings.Index(md, "**IT**"), strings.Index(md, "**HR**"))
	assert.Less(t, strings.Index(md, "### High (Gap: 0.60)"), strings.Index(md, "### Low (Gap: 0.10)"))
	assert.Contains(t, md, "### Cloud (Priority: High)")
	assert.NotContains(t, md, "Optional")
	assert.Contains(t, md, "## Timeline for Readiness\n1 year")
}
