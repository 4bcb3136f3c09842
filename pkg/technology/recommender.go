package technology

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"dtplanner/pkg/domain"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/maturity"
)

// Maturity levels of a technology category, lowest first.
//
//nolint:gochecknoglobals // fixed scale
var MaturityLevels = []string{"Initial", "Developing", "Defined", "Managed", "Optimized"}

const (
	baseScore     = 5
	maxScore      = 10
	industryBonus = 2

	// MinRoadmapRelevance excludes weakly relevant categories from the roadmap.
	MinRoadmapRelevance = 5
	optionsPerPhase     = 2
	summaryCategories   = 3
)

// Complexity ceilings.
const (
	complexityLow    = 1
	complexityMedium = 2
	complexityHigh   = 3
)

type phaseSpec struct {
	name          string
	timeline      string
	maxComplexity int
	effort        string
}

//nolint:gochecknoglobals // fixed roadmap shape
var phases = []phaseSpec{
	{"Foundation Building", "Months 1-3", complexityLow, "Medium (3-4 FTEs)"},
	{"Core Implementation", "Months 4-9", complexityMedium, "High (5-7 FTEs)"},
	{"Advanced Capabilities", "Months 10-18", complexityHigh, "Very High (8-10 FTEs)"},
}

// ComplexityRank maps Low/Medium/High to 1/2/3. Unknown values rank 0.
func ComplexityRank(c string) int {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "low":
		return complexityLow
	case "medium":
		return complexityMedium
	case "high":
		return complexityHigh
	default:
		return 0
	}
}

// Recommender evaluates the catalog against a company profile and maturity result.
// It makes no model calls.
type Recommender struct {
	catalog *Catalog
	logger  *logx.Logger
}

// NewRecommender creates a recommender. A nil catalog uses the embedded one.
func NewRecommender(catalog *Catalog) (*Recommender, error) {
	if catalog == nil {
		var err error
		if catalog, err = DefaultCatalog(); err != nil {
			return nil, err
		}
	}
	return &Recommender{catalog: catalog, logger: logx.NewLogger("technology")}, nil
}

// looselyMatches reports case-insensitive containment in either direction.
func looselyMatches(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(b, a) || strings.Contains(a, b)
}

// countMatches counts the wanted entries that loosely match any declared entry.
// Each wanted entry counts at most once.
func countMatches(wanted, declared []string) int {
	n := 0
	for _, w := range wanted {
		if slices.ContainsFunc(declared, func(d string) bool { return looselyMatches(w, d) }) {
			n++
		}
	}
	return n
}

// RelevanceScore scores a category 5-10 against the company's goals and challenges.
func RelevanceScore(cat *CatalogCategory, company *domain.CompanyProfile) int {
	score := baseScore +
		countMatches(company.Goals, cat.SupportsGoals) +
		countMatches(company.Challenges, cat.AddressesChallenges)
	return min(score, maxScore)
}

// IndustryFitScore scores an option 5-10 for the company.
func IndustryFitScore(opt *CatalogOption, company *domain.CompanyProfile) int {
	score := baseScore
	if slices.ContainsFunc(opt.IndustryFocus, func(f string) bool {
		return strings.EqualFold(f, company.Industry) || strings.EqualFold(f, "all")
	}) {
		score += industryBonus
	}
	score += countMatches(company.Goals, opt.SupportsGoals)
	score += countMatches(company.Challenges, opt.AddressesChallenges)
	return min(score, maxScore)
}

// MaturityLevelsFor maps a 1-5 score onto the current and target category levels.
func MaturityLevelsFor(score float64) (current, target string) {
	idx := min(max(int(score)-1, 0), len(MaturityLevels)-1)
	return MaturityLevels[idx], MaturityLevels[min(idx+1, len(MaturityLevels)-1)]
}

// categoryScore picks the maturity score of the dimension related to the
// category, or the overall score when none matches.
func categoryScore(cat *CatalogCategory, assessment *maturity.Assessment) float64 {
	if cat.RelatedDimension != "" {
		for i := range assessment.Dimensions {
			if looselyMatches(assessment.Dimensions[i].Name, cat.RelatedDimension) {
				return assessment.Dimensions[i].CurrentScore
			}
		}
	}
	return assessment.OverallScore
}

// IntegrationNotes describes how an option connects to the company's systems.
func IntegrationNotes(opt *CatalogOption, current []string) string {
	if len(current) == 0 {
		return "No existing systems information provided for integration analysis."
	}
	var points []string
	for _, tech := range current {
		if slices.ContainsFunc(opt.Integrations, func(i string) bool { return strings.EqualFold(i, tech) }) {
			points = append(points, "Direct integration available with "+tech)
		}
	}
	if len(points) == 0 {
		return fmt.Sprintf("Custom integration may be required between %s and existing systems.", opt.Name)
	}
	return "Integration opportunities: " + strings.Join(points, "; ")
}

// EvaluateCategory scores a catalog category and its options for the company.
// Options are ordered by descending industry fit.
func (r *Recommender) EvaluateCategory(cat *CatalogCategory, company *domain.CompanyProfile, assessment *maturity.Assessment) Category {
	current, target := MaturityLevelsFor(categoryScore(cat, assessment))

	options := make([]Option, 0, len(cat.Options))
	for i := range cat.Options {
		o := &cat.Options[i]
		options = append(options, Option{
			Name:                     o.Name,
			Vendor:                   o.Vendor,
			Description:              o.Description,
			KeyFeatures:              o.KeyFeatures,
			Pros:                     o.Pros,
			Cons:                     o.Cons,
			CostRange:                o.CostRange,
			ImplementationComplexity: o.ImplementationComplexity,
			IntegrationNotes:         IntegrationNotes(o, company.Technologies),
			IndustryFitScore:         IndustryFitScore(o, company),
			URL:                      o.URL,
		})
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].IndustryFitScore > options[j].IndustryFitScore })

	return Category{
		Name:            cat.Name,
		Description:     cat.Description,
		RelevanceScore:  RelevanceScore(cat, company),
		CurrentMaturity: current,
		TargetMaturity:  target,
		Options:         options,
		Recommendations: categoryRecommendations(cat.Name, options, company, current),
	}
}

func categoryRecommendations(name string, options []Option, company *domain.CompanyProfile, current string) []string {
	var recs []string
	if current == MaturityLevels[0] || current == MaturityLevels[1] {
		recs = append(recs, fmt.Sprintf("Focus on establishing foundational %s capabilities before advanced solutions", name))
		for _, o := range options {
			if ComplexityRank(o.ImplementationComplexity) == complexityLow {
				recs = append(recs, fmt.Sprintf("Start with %s as an entry-level solution to build basic capabilities", o.Name))
				break
			}
		}
	}
	if len(options) > 0 {
		top := options[0]
		recs = append(recs, fmt.Sprintf("Consider %s as a primary solution for %s", top.Name, name))
		for _, o := range options {
			if o.CostRange == "$" && o.IndustryFitScore > baseScore {
				if o.Name != top.Name {
					recs = append(recs, fmt.Sprintf("%s offers a cost-effective alternative with acceptable capabilities", o.Name))
				}
				break
			}
		}
		if len(company.Technologies) > 0 {
			recs = append(recs, fmt.Sprintf("Ensure integration planning between new %s solutions and existing systems", name))
		}
	}
	return recs
}

// Recommend evaluates every catalog category relevant to the company's industry
// and assembles the stack.
func (r *Recommender) Recommend(company *domain.CompanyProfile, assessment *maturity.Assessment) (*Stack, error) {
	if assessment == nil {
		return nil, fmt.Errorf("technology recommendation for %s requires a maturity assessment", company.Name)
	}
	catalog := r.catalog.CategoriesFor(company.Industry)
	r.logger.Info("evaluating %d technology categories for %s", len(catalog), company.Industry)

	categories := make([]Category, 0, len(catalog))
	for i := range catalog {
		categories = append(categories, r.EvaluateCategory(&catalog[i], company, assessment))
	}
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].RelevanceScore > categories[j].RelevanceScore })

	roadmap := BuildRoadmap(categories, dependencyIndex(catalog))
	s := &Stack{Categories: categories, Roadmap: roadmap}
	summarize(s, company)

	r.logger.Info("technology stack for %s: %d categories, %d roadmap phases", company.Name, len(s.Categories), len(s.Roadmap))
	return s, nil
}

func dependencyIndex(catalog []CatalogCategory) map[string][]string {
	deps := make(map[string][]string)
	for i := range catalog {
		if len(catalog[i].DependsOn) > 0 {
			deps[catalog[i].Name] = catalog[i].DependsOn
		}
	}
	return deps
}

func phaseActivity(o *Option) string {
	switch ComplexityRank(o.ImplementationComplexity) {
	case complexityLow:
		return fmt.Sprintf("Implement basic %s capabilities", o.Name)
	case complexityMedium:
		return fmt.Sprintf("Deploy and integrate %s with existing systems", o.Name)
	default:
		return fmt.Sprintf("Full enterprise rollout of %s with advanced features", o.Name)
	}
}

// BuildRoadmap places options into phases. Categories must already be ordered
// by descending relevance. An option lands in the earliest phase whose
// complexity ceiling admits it. Outside the foundation phase a category is held
// back until every category it depends on has an entry in an earlier phase.
func BuildRoadmap(categories []Category, deps map[string][]string) []Phase {
	placed := make(map[string]bool)          // "option (category)" entries already scheduled
	scheduledBefore := make(map[string]bool) // categories with an entry in an earlier phase

	var roadmap []Phase
	for pi, spec := range phases {
		phase := Phase{Name: spec.name, Timeline: spec.timeline, EstimatedEffort: spec.effort}
		inPhase := make(map[string]bool)

		for ci := range categories {
			cat := &categories[ci]
			if cat.RelevanceScore < MinRoadmapRelevance {
				continue
			}

			unmet := false
			for _, dep := range deps[cat.Name] {
				if !scheduledBefore[dep] {
					unmet = true
					if !slices.Contains(phase.Dependencies, dep) {
						phase.Dependencies = append(phase.Dependencies, dep)
					}
				}
			}
			if unmet && pi > 0 {
				continue
			}

			taken := 0
			for oi := range cat.Options {
				o := &cat.Options[oi]
				if ComplexityRank(o.ImplementationComplexity) > spec.maxComplexity {
					continue
				}
				entry := fmt.Sprintf("%s (%s)", o.Name, cat.Name)
				if placed[entry] {
					continue
				}
				placed[entry] = true
				inPhase[cat.Name] = true
				phase.Technologies = append(phase.Technologies, entry)
				phase.KeyActivities = append(phase.KeyActivities, phaseActivity(o))
				if taken++; taken >= optionsPerPhase {
					break
				}
			}
		}

		for name := range inPhase {
			scheduledBefore[name] = true
		}
		if len(phase.Technologies) > 0 {
			roadmap = append(roadmap, phase)
		}
	}
	return roadmap
}

// CostEstimate bands the average "$" count of each category's top option.
func CostEstimate(categories []Category) string {
	var signs, n int
	for i := range categories {
		if len(categories[i].Options) == 0 {
			continue
		}
		signs += strings.Count(categories[i].Options[0].CostRange, "$")
		n++
	}
	var avg float64
	if n > 0 {
		avg = float64(signs) / float64(n)
	}
	switch {
	case avg < 1.5:
		return "$250,000 - $500,000"
	case avg < 2.5:
		return "$500,000 - $1,000,000"
	default:
		return "$1,000,000+"
	}
}

//nolint:gochecknoglobals // fixed guidance
var defaultRisks = []Risk{
	{"Integration Complexity", "Detailed technical discovery and integration planning before implementation"},
	{"User Adoption", "Robust change management and training program"},
	{"Budget Overruns", "Phased approach with clear success criteria before proceeding to next phase"},
	{"Vendor Lock-in", "Evaluate exit costs and data portability before selection"},
	{"Implementation Delays", "Agile methodology with regular milestones review"},
}

func summarize(s *Stack, company *domain.CompanyProfile) {
	top := make([]string, 0, summaryCategories)
	for i := 0; i < len(s.Categories) && i < summaryCategories; i++ {
		top = append(top, s.Categories[i].Name)
	}

	span := "12-18 months"
	s.ImplementationTimeframe = "12-18 months with phased approach"
	if n := len(s.Roadmap); n > 0 {
		span = s.Roadmap[n-1].Timeline
		s.ImplementationTimeframe = fmt.Sprintf("Full implementation: %s to %s", s.Roadmap[0].Timeline, span)
	}

	s.ExecutiveSummary = fmt.Sprintf(
		"Based on %s's current digital maturity assessment and business goals, we recommend a phased "+
			"technology implementation approach focusing on %s. These technologies will address key challenges "+
			"in %s while building a foundation for long-term digital transformation success. The proposed "+
			"implementation spans %s, with early wins achievable in the first 90 days.",
		company.Name, strings.Join(top, ", "), company.Industry, span)

	s.BusinessContext = fmt.Sprintf(
		"This technology stack recommendation is designed to help %s achieve its digital transformation goals of %s. "+
			"The recommended solutions specifically address business challenges including %s. The technology "+
			"selection considers current systems, industry best practices, and a pragmatic implementation approach.",
		company.Name, strings.Join(company.Goals, ", "), strings.Join(company.Challenges, ", "))

	s.TotalCostEstimate = CostEstimate(s.Categories)
	s.KeyConsiderations = []string{
		fmt.Sprintf("Integration with existing systems is critical for %s's technology stack", company.Name),
		"Cross-functional teams should be involved in selection and implementation",
		"Consider change management needs for user adoption",
		"Regular progress reviews against business outcomes are essential",
		"Build internal capabilities aligned with new technologies",
	}
	s.RiskFactors = slices.Clone(defaultRisks)
}
