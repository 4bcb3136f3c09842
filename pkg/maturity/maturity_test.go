package maturity

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

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, LevelInitial},
		{1.999, LevelInitial},
		{2.0, LevelDeveloping},
		{2.999, LevelDeveloping},
		{3.0, LevelAdvanced},
		{3.999, LevelAdvanced},
		{4.0, LevelLeading},
		{5.0, LevelLeading},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestBenchmarkFor(t *testing.T) {
	tests := []struct {
		industry string
		want     string
	}{
		{"Healthcare", "Healthcare"},
		{"healthcare services", "Healthcare"},
		{"RETAIL", "Retail"},
		{"Finance", CrossIndustry},
		{"Financial", "Financial Services"},
		{"Higher Education", "Education"},
		{"Aerospace", CrossIndustry},
	}
	for _, tt := range tests {
		if got := BenchmarkFor(tt.industry).Industry; got != tt.want {
			t.Errorf("BenchmarkFor(%q) = %q, want %q", tt.industry, got, tt.want)
		}
	}

	b := BenchmarkFor("Retail")
	assert.InDelta(t, 3.5, b.DimensionAverage("Customer Experience"), 1e-9)
	assert.InDelta(t, 3.0, b.DimensionAverage("Quantum Readiness"), 1e-9, "unknown dimension uses the overall average")

	b.DimensionAverages["Customer Experience"] = 0
	assert.InDelta(t, 3.5, BenchmarkFor("Retail").DimensionAverage("Customer Experience"), 1e-9, "benchmarks are copied")
}

func TestNewAssessmentAggregates(t *testing.T) {
	results := []DimensionResult{
		{Name: "A", Description: "a", CurrentScore: 3, TargetScore: 4, Gap: 1, ImprovementAreas: []string{"a1"}},
		{Name: "B", Description: "b", CurrentScore: 2, TargetScore: 4.5, Gap: 2.5},
		{Name: "C", Description: "c", CurrentScore: 3, TargetScore: 3.5, Gap: 0.5, ImprovementAreas: []string{"c1"}},
		{Name: "D", Description: "d", CurrentScore: 4, TargetScore: 5, Gap: 1, ImprovementAreas: []string{"d1"}},
	}
	a := NewAssessment(results, BenchmarkFor("Retail"))

	assert.InDelta(t, 3.0, a.OverallScore, 1e-9)
	assert.Equal(t, LevelAdvanced, a.MaturityLevel)
	assert.InDelta(t, 3.0, a.IndustryAverage, 1e-9)
	assert.Equal(t, []string{"D (4.0/5.0): d", "A (3.0/5.0): a", "C (3.0/5.0): c"}, a.TopStrengths, "ties keep input order")
	assert.Equal(t, []string{"B (Gap: 2.5): Need improvement", "A (Gap: 1.0): a1", "D (Gap: 1.0): d1"}, a.TopGaps)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 1.0, ClampScore(-3))
	assert.Equal(t, 5.0, ClampScore(7.5))
	assert.Equal(t, 2.5, ClampScore(2.5))
}

func TestAssessWithFallbacks(t *testing.T) {
	client := testkit.NewMockLLMClient("mock").
		OnError("Dimension to evaluate: Organizational Culture", errors.New("timeout"), 0).
		On("Dimension to evaluate: Customer Experience", `{"current_score": 9, "target_score": 4, "improvement_areas": ["Mobile app"]}`).
		Default(`{"current_score": 2.5, "target_score": 3.5, "improvement_areas": ["Integrate systems", "Train staff"]}`)

	company := domain.SampleCompany()
	a, err := NewAssessor(client, nil, 3).Assess(context.Background(), &company)
	require.NoError(t, err)
	require.Len(t, a.Dimensions, len(Dimensions))

	for i, d := range a.Dimensions {
		assert.Equal(t, Dimensions[i].Name, d.Name, "dimension order is fixed")
		assert.InDelta(t, d.TargetScore-d.CurrentScore, d.Gap, 1e-9)
	}

	culture, ok := a.Dimension("Organizational Culture")
	require.True(t, ok)
	assert.True(t, culture.Fallback)
	assert.Equal(t, FallbackCurrentScore, culture.CurrentScore)
	assert.Equal(t, []string{FallbackArea}, culture.ImprovementAreas)
	assert.InDelta(t, 2.4, culture.IndustryBenchmark, 1e-9)

	cx, _ := a.Dimension("Customer Experience")
	assert.Equal(t, 5.0, cx.CurrentScore, "scores are clamped")
	assert.Equal(t, -1.0, cx.Gap)

	want := (2.5*5 + 2.0 + 5.0) / 7
	assert.True(t, math.Abs(a.OverallScore-want) < 1e-9, "overall = mean of current scores, got %v", a.OverallScore)
	assert.Equal(t, "Healthcare", a.Benchmark)
	assert.Equal(t, len(Dimensions), len(client.Calls()))
}

func TestAssessCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	company := domain.SampleCompany()
	_, err := NewAssessor(testkit.NewMockLLMClient("mock").Default("{}"), nil, 1).Assess(ctx, &company)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMarkdown(t *testing.T) {
	a := NewAssessment([]DimensionResult{
		{Name: "Digital Strategy", Description: "desc", CurrentScore: 2, TargetScore: 4, IndustryBenchmark: 2.9, Gap: 2, ImprovementAreas: []string{"Roadmap"}},
	}, BenchmarkFor("Healthcare"))

	md := a.Markdown()
	for _, want := range []string{
		"# Digital Transformation Maturity Assessment",
		"## Overall Maturity: Developing",
		"Current Score: 2.0/5.0 | Target: 4.0/5.0 | Industry Benchmark: 2.9/5.0",
		"- Roadmap",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}
	assert.Contains(t, a.Summary(), "Overall Maturity: Developing (2.0/5.0")
}
