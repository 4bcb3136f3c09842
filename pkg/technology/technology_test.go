package technology

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtplanner/pkg/domain"
	"dtplanner/pkg/maturity"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	assert.Len(t, c.Standard, 5)
	for _, industry := range []string{"Healthcare", "Manufacturing", "Retail", "Financial Services", "Education"} {
		assert.NotEmpty(t, c.Industries[industry], industry)
	}
	for _, cat := range c.CategoriesFor("Healthcare") {
		assert.NotEmpty(t, cat.Options, cat.Name)
		for _, o := range cat.Options {
			assert.NotZero(t, ComplexityRank(o.ImplementationComplexity), "%s complexity %q", o.Name, o.ImplementationComplexity)
		}
	}
	assert.Len(t, c.CategoriesFor("Aerospace"), 5)
}

func TestRelevanceScore(t *testing.T) {
	cat := &CatalogCategory{
		SupportsGoals:       []string{"Improve customer experience", "Increase customer retention"},
		AddressesChallenges: []string{"Siloed customer data"},
	}

	tests := []struct {
		name       string
		goals      []string
		challenges []string
		want       int
	}{
		{"case differing goal", []string{"improve customer experience"}, nil, 6},
		{"no matches", []string{"reduce costs"}, []string{"legacy systems"}, 5},
		{"goal contains declared", []string{"Improve customer experience across channels"}, nil, 6},
		{"goal and challenge", []string{"Improve customer experience"}, []string{"siloed customer data"}, 7},
		{"goal counted once", []string{"customer"}, nil, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			company := &domain.CompanyProfile{Goals: tt.goals, Challenges: tt.challenges}
			if got := RelevanceScore(cat, company); got != tt.want {
				t.Errorf("RelevanceScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRelevanceScoreCapped(t *testing.T) {
	cat := &CatalogCategory{SupportsGoals: []string{"growth"}}
	company := &domain.CompanyProfile{Goals: slices.Repeat([]string{"growth"}, 8)}
	if got := RelevanceScore(cat, company); got != 10 {
		t.Errorf("RelevanceScore() = %d, want 10", got)
	}
}

func TestIndustryFitScore(t *testing.T) {
	opt := &CatalogOption{
		IndustryFocus:       []string{"Retail", "Healthcare"},
		SupportsGoals:       []string{"Increase sales"},
		AddressesChallenges: []string{"Siloed customer data"},
	}
	company := &domain.CompanyProfile{
		Industry:   "retail",
		Goals:      []string{"increase sales"},
		Challenges: []string{"Siloed customer data"},
	}
	if got := IndustryFitScore(opt, company); got != 9 {
		t.Errorf("IndustryFitScore() = %d, want 9", got)
	}

	wildcard := &CatalogOption{IndustryFocus: []string{"All"}}
	if got := IndustryFitScore(wildcard, &domain.CompanyProfile{Industry: "Mining"}); got != 7 {
		t.Errorf("IndustryFitScore(all) = %d, want 7", got)
	}
}

func TestMaturityLevelsFor(t *testing.T) {
	tests := []struct {
		score           float64
		current, target string
	}{
		{0.5, "Initial", "Developing"},
		{1.0, "Initial", "Developing"},
		{2.9, "Developing", "Defined"},
		{3.0, "Defined", "Managed"},
		{4.2, "Managed", "Optimized"},
		{5.0, "Optimized", "Optimized"},
	}
	for _, tt := range tests {
		current, target := MaturityLevelsFor(tt.score)
		if current != tt.current || target != tt.target {
			t.Errorf("MaturityLevelsFor(%v) = %s/%s, want %s/%s", tt.score, current, target, tt.current, tt.target)
		}
	}
}

func TestIntegrationNotes(t *testing.T) {
	opt := &CatalogOption{Name: "Shopify Plus", Integrations: []string{"Legacy POS", "ERP systems"}}

	assert.Equal(t, "No existing systems information provided for integration analysis.", IntegrationNotes(opt, nil))
	assert.Equal(t, "Integration opportunities: Direct integration available with legacy pos",
		IntegrationNotes(opt, []string{"legacy pos", "Excel"}))
	assert.Equal(t, "Custom integration may be required between Shopify Plus and existing systems.",
		IntegrationNotes(opt, []string{"Excel"}))
}

func TestBuildRoadmapRespectsComplexityAndDependencies(t *testing.T) {
	categories := []Category{
		{
			Name:           "Core",
			RelevanceScore: 8,
			Options: []Option{
				{Name: "Core Lite", ImplementationComplexity: "Low"},
				{Name: "Core Suite", ImplementationComplexity: "Medium"},
				{Name: "Core Max", ImplementationComplexity: "High"},
			},
		},
		{
			Name:           "Analytics",
			RelevanceScore: 7,
			Options: []Option{
				{Name: "Dash", ImplementationComplexity: "Low"},
				{Name: "Lake", ImplementationComplexity: "Medium"},
			},
		},
		{
			Name:           "AI",
			RelevanceScore: 6,
			Options:        []Option{{Name: "Bots", ImplementationComplexity: "Medium"}},
		},
		{
			Name:           "Ignored",
			RelevanceScore: 4,
			Options:        []Option{{Name: "Nope", ImplementationComplexity: "Low"}},
		},
	}
	deps := map[string][]string{
		"Analytics": {"Core"},
		"AI":        {"Analytics"},
	}

	roadmap := BuildRoadmap(categories, deps)
	require.Len(t, roadmap, 3)

	assert.Equal(t, "Foundation Building", roadmap[0].Name)
	assert.Equal(t, []string{"Core Lite (Core)", "Dash (Analytics)"}, roadmap[0].Technologies)
	assert.Equal(t, []string{"Core", "Analytics"}, roadmap[0].Dependencies)

	assert.Equal(t, "Core Implementation", roadmap[1].Name)
	assert.Equal(t, []string{"Core Suite (Core)", "Lake (Analytics)", "Bots (AI)"}, roadmap[1].Technologies)
	assert.Equal(t, "Deploy and integrate Core Suite with existing systems", roadmap[1].KeyActivities[0])

	assert.Equal(t, "Advanced Capabilities", roadmap[2].Name)
	assert.Equal(t, []string{"Core Max (Core)"}, roadmap[2].Technologies)

	for _, p := range roadmap {
		for _, tech := range p.Technologies {
			assert.NotContains(t, tech, "Ignored")
		}
	}
}

func TestBuildRoadmapHoldsBackUnmetDependency(t *testing.T) {
	categories := []Category{
		{Name: "Platform", RelevanceScore: 9, Options: []Option{{Name: "Mainframe", ImplementationComplexity: "High"}}},
		{Name: "Portal", RelevanceScore: 8, Options: []Option{
			{Name: "Starter", ImplementationComplexity: "Low"},
			{Name: "Pro", ImplementationComplexity: "Medium"},
		}},
	}
	roadmap := BuildRoadmap(categories, map[string][]string{"Portal": {"Platform"}})

	var all []string
	for _, p := range roadmap {
		all = append(all, p.Technologies...)
	}
	assert.Equal(t, []string{"Starter (Portal)", "Mainframe (Platform)"}, all)
}

func TestCostEstimate(t *testing.T) {
	mk := func(costs ...string) []Category {
		var cats []Category
		for _, c := range costs {
			cats = append(cats, Category{Options: []Option{{CostRange: c}}})
		}
		return cats
	}
	assert.Equal(t, "$250,000 - $500,000", CostEstimate(mk("$", "$")))
	assert.Equal(t, "$500,000 - $1,000,000", CostEstimate(mk("$", "$$$")))
	assert.Equal(t, "$1,000,000+", CostEstimate(mk("$$$", "$$")))
	assert.Equal(t, "$250,000 - $500,000", CostEstimate(nil))
}

func testAssessment(score float64) *maturity.Assessment {
	results := make([]maturity.DimensionResult, 0, len(maturity.Dimensions))
	for _, d := range maturity.Dimensions {
		results = append(results, maturity.DimensionResult{Name: d.Name, CurrentScore: score, TargetScore: score + 1, Gap: 1})
	}
	return maturity.NewAssessment(results, maturity.BenchmarkFor("Retail"))
}

func TestRecommend(t *testing.T) {
	r, err := NewRecommender(nil)
	require.NoError(t, err)

	company := &domain.CompanyProfile{
		Name:         "Acme",
		Industry:     "Retail",
		Goals:        []string{"Improve customer experience"},
		Challenges:   []string{"Siloed customer data"},
		Technologies: []string{"Legacy POS"},
	}
	stack, err := r.Recommend(company, testAssessment(2.0))
	require.NoError(t, err)

	require.Len(t, stack.Categories, 6)
	for i := 1; i < len(stack.Categories); i++ {
		assert.GreaterOrEqual(t, stack.Categories[i-1].RelevanceScore, stack.Categories[i].RelevanceScore)
	}
	cx := stack.Categories[0]
	assert.Equal(t, "Customer Experience Platforms", cx.Name)
	assert.Equal(t, "Developing", cx.CurrentMaturity)
	assert.Equal(t, "Defined", cx.TargetMaturity)
	assert.Contains(t, cx.Recommendations[0], "foundational Customer Experience Platforms")

	require.NotEmpty(t, stack.Roadmap)
	assert.Equal(t, "Foundation Building", stack.Roadmap[0].Name)
	assert.Contains(t, stack.ExecutiveSummary, "Acme")
	assert.Contains(t, stack.BusinessContext, "Siloed customer data")
	assert.Len(t, stack.RiskFactors, 5)
	assert.True(t, strings.HasPrefix(stack.ImplementationTimeframe, "Full implementation: Months 1-3"))

	md := stack.Markdown()
	assert.True(t, strings.HasPrefix(md, "# Technology Stack Recommendations"))
	assert.Contains(t, md, "## Customer Experience Platforms (Relevance: ")
	assert.Contains(t, md, "### Phase: Foundation Building (Months 1-3)")
	assert.Contains(t, md, "- **Vendor Lock-in**: ")
}

func TestRecommendRequiresAssessment(t *testing.T) {
	r, err := NewRecommender(nil)
	require.NoError(t, err)
	_, err = r.Recommend(&domain.CompanyProfile{Name: "Acme", Industry: "Retail"}, nil)
	assert.Error(t, err)
}
