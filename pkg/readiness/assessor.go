package readiness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/maturity"
	"dtplanner/pkg/technology"
	"dtplanner/pkg/templates"
)

var errEmpty = errors.New("response contained no entries")

// Assessor runs the readiness sub-assessments.
type Assessor struct {
	client   llm.LLMClient
	renderer *templates.Renderer
	logger   *logx.Logger
}

// NewAssessor creates an assessor.
func NewAssessor(client llm.LLMClient, renderer *templates.Renderer) *Assessor {
	if renderer == nil {
		renderer = templates.MustNewRenderer()
	}
	return &Assessor{client: client, renderer: renderer, logger: logx.NewLogger("readiness")}
}

// run tracks which sub-assessments fell back during one Assess call.
type run struct {
	a         *Assessor
	data      *templates.PromptData
	mu        sync.Mutex
	fallbacks []string
}

func (r *run) fellBack(name string, err error) {
	r.a.logger.Warn("%s sub-assessment failed, using fallback: %v", name, err)
	r.mu.Lock()
	r.fallbacks = append(r.fallbacks, name)
	r.mu.Unlock()
}

// complete renders tmpl, decodes the JSON reply into a T and validates it.
func complete[T any](ctx context.Context, r *run, name string, tmpl templates.PromptTemplate, data *templates.PromptData, validate func(*T) error) (T, error) {
	var out T
	prompt, err := r.a.renderer.Render(tmpl, data)
	if err != nil {
		return out, err //nolint:wrapcheck // names the template
	}
	ctx = llm.WithCaller(ctx, llm.Caller{Actor: name})
	if err := llm.CompleteJSON(ctx, r.a.client, llm.NewJSONRequest(prompt.Messages()), &out); err != nil {
		return out, err //nolint:wrapcheck // classified llm error
	}
	if validate != nil {
		if err := validate(&out); err != nil {
			return out, fmt.Errorf("%s: %w", name, err)
		}
	}
	return out, nil
}

func nonEmpty[E any](items []E) error {
	if len(items) == 0 {
		return errEmpty
	}
	return nil
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Assess produces the readiness assessment. Maturity and stack may be nil.
// Every sub-assessment falls back on failure; the only error is context
// cancellation.
func (a *Assessor) Assess(ctx context.Context, company *domain.CompanyProfile, m *maturity.Assessment, stack *technology.Stack) (*Assessment, error) {
	a.logger.Info("assessing organizational readiness for %s", company.Name)

	data := templates.NewPromptData(company)
	data.Maturity = "No maturity assessment is available."
	if m != nil {
		data.Maturity = m.Summary()
	}
	if stack != nil {
		data.Technology = stack.Summary()
	}
	r := &run{a: a, data: data}
	out := &Assessment{}

	// Skills, culture, change and leadership are independent of each other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.SkillGaps = r.skillGaps(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		out.CulturalFactors = r.culturalFactors(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		out.ChangeMetrics = r.changeMetrics(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		out.Leadership = r.leadership(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("readiness assessment cancelled: %w", err)
	}

	// Training needs and departments are grounded in the skill gaps.
	skills := toJSON(out.SkillGaps)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		out.TrainingNeeds = r.trainingNeeds(gctx, skills)
		return gctx.Err()
	})
	g.Go(func() error {
		out.DepartmentReadiness = r.departments(gctx, skills)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("readiness assessment cancelled: %w", err)
	}

	out.OverallScore = OverallScore(out)
	out.KeyRecommendations, out.TimelineForReadiness = r.recommendations(ctx, out)
	out.PriorityActions = PriorityActions(out)
	out.ExecutiveSummary = r.summary(ctx, company, out)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("readiness assessment cancelled: %w", err)
	}

	out.FallbackSubAssessments = r.fallbacks
	a.logger.Info("readiness assessment complete: %.2f (%d fallbacks)", out.OverallScore, len(r.fallbacks))
	return out, nil
}

func (r *run) skillGaps(ctx context.Context) []SkillGap {
	type reply struct {
		SkillGaps []SkillGap `json:"skill_gaps"`
	}
	out, err := complete(ctx, r, SubSkills, templates.ReadinessSkillsTemplate, r.data,
		func(v *reply) error { return nonEmpty(v.SkillGaps) })
	if err != nil {
		r.fellBack(SubSkills, err)
		return fallbackSkillGaps()
	}
	return out.SkillGaps
}

func (r *run) culturalFactors(ctx context.Context) []CulturalFactor {
	type reply struct {
		CulturalFactors []CulturalFactor `json:"cultural_factors"`
	}
	out, err := complete(ctx, r, SubCulture, templates.ReadinessCultureTemplate, r.data,
		func(v *reply) error { return nonEmpty(v.CulturalFactors) })
	if err != nil {
		r.fellBack(SubCulture, err)
		return fallbackCulturalFactors()
	}
	return out.CulturalFactors
}

func (r *run) changeMetrics(ctx context.Context) []ChangeMetric {
	type reply struct {
		Metrics []ChangeMetric `json:"metrics"`
	}
	out, err := complete(ctx, r, SubChange, templates.ReadinessChangeTemplate, r.data,
		func(v *reply) error { return nonEmpty(v.Metrics) })
	if err != nil {
		r.fellBack(SubChange, err)
		return fallbackChangeMetrics()
	}
	return out.Metrics
}

func (r *run) leadership(ctx context.Context) Leadership {
	out, err := complete(ctx, r, SubLeadership, templates.ReadinessLeadershipTemplate, r.data,
		func(v *Leadership) error {
			if v.Score() == 0 {
				return errors.New("response carried no leadership scores")
			}
			return nil
		})
	if err != nil {
		r.fellBack(SubLeadership, err)
		return fallbackLeadership()
	}
	return out
}

func (r *run) trainingNeeds(ctx context.Context, skills string) []TrainingNeed {
	type reply struct {
		TrainingNeeds []TrainingNeed `json:"training_needs"`
	}
	data := *r.data
	data.Context = skills
	out, err := complete(ctx, r, SubTraining, templates.ReadinessTrainingTemplate, &data,
		func(v *reply) error { return nonEmpty(v.TrainingNeeds) })
	if err != nil {
		r.fellBack(SubTraining, err)
		return fallbackTrainingNeeds()
	}
	return out.TrainingNeeds
}

func (r *run) departments(ctx context.Context, skills string) map[string]float64 {
	data := *r.data
	data.Context = skills
	out, err := complete(ctx, r, SubDepartments, templates.ReadinessDepartmentsTemplate, &data,
		func(v *map[string]float64) error {
			if len(*v) == 0 {
				return errEmpty
			}
			return nil
		})
	if err != nil {
		r.fellBack(SubDepartments, err)
		return fallbackDepartments()
	}
	return out
}

func (r *run) recommendations(ctx context.Context, a *Assessment) ([]string, string) {
	type reply struct {
		KeyRecommendations []string `json:"key_recommendations"`
		Timeline           string   `json:"timeline"`
	}
	data := *r.data
	data.Context = toJSON(struct {
		SkillGaps       []SkillGap         `json:"skill_gaps"`
		CulturalFactors []CulturalFactor   `json:"cultural_factors"`
		ChangeReadiness []ChangeMetric     `json:"change_readiness"`
		Leadership      Leadership         `json:"leadership_readiness"`
		TrainingNeeds   []TrainingNeed     `json:"training_needs"`
		Departments     map[string]float64 `json:"readiness_by_department"`
	}{a.SkillGaps, a.CulturalFactors, a.ChangeMetrics, a.Leadership, a.TrainingNeeds, a.DepartmentReadiness})

	out, err := complete(ctx, r, SubRecommendations, templates.ReadinessRecommendationsTemplate, &data,
		func(v *reply) error { return nonEmpty(v.KeyRecommendations) })
	if err != nil {
		r.fellBack(SubRecommendations, err)
		return fallbackKeyRecommendations(), FallbackTimeline
	}
	if strings.TrimSpace(out.Timeline) == "" {
		out.Timeline = FallbackTimeline
	}
	return out.KeyRecommendations, out.Timeline
}

type keyFinding struct {
	Area  string  `json:"area"`
	Score float64 `json:"score"`
}

func (r *run) summary(ctx context.Context, company *domain.CompanyProfile, a *Assessment) string {
	findings := struct {
		OverallScore      float64            `json:"overall_score"`
		LeadershipScore   float64            `json:"leadership_score"`
		CulturalAlignment float64            `json:"cultural_alignment"`
		SkillGaps         []keyFinding       `json:"skill_gaps"`
		Departments       map[string]float64 `json:"department_readiness"`
	}{
		OverallScore:      a.OverallScore,
		LeadershipScore:   a.Leadership.Score(),
		CulturalAlignment: CulturalScore(a.CulturalFactors),
		Departments:       a.DepartmentReadiness,
	}
	for i := 0; i < len(a.SkillGaps) && i < 3; i++ {
		findings.SkillGaps = append(findings.SkillGaps, keyFinding{a.SkillGaps[i].SkillArea, a.SkillGaps[i].GapScore})
	}

	data := *r.data
	data.Score = a.OverallScore
	data.Context = toJSON(findings)

	text, err := r.completeText(ctx, SubSummary, templates.ReadinessSummaryTemplate, &data)
	if err != nil {
		r.fellBack(SubSummary, err)
		return FallbackSummary(company.Name, a)
	}
	return text
}

func (r *run) completeText(ctx context.Context, name string, tmpl templates.PromptTemplate, data *templates.PromptData) (string, error) {
	prompt, err := r.a.renderer.Render(tmpl, data)
	if err != nil {
		return "", err //nolint:wrapcheck // names the template
	}
	ctx = llm.WithCaller(ctx, llm.Caller{Actor: name})
	resp, err := r.a.client.Complete(ctx, llm.NewCompletionRequest(prompt.Messages()))
	if err != nil {
		return "", err //nolint:wrapcheck // classified llm error
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", errEmpty
	}
	return text, nil
}

// FallbackSummary is a deterministic executive summary built from the scores.
func FallbackSummary(company string, a *Assessment) string {
	gap := "no specific area"
	if len(a.SkillGaps) > 0 {
		gap = a.SkillGaps[0].SkillArea
	}
	return fmt.Sprintf(
		"%s has an overall digital transformation readiness score of %.2f out of 1.0. "+
			"Leadership readiness averages %.2f and cultural alignment averages %.2f. "+
			"The most pressing skill gap is %s. Expected time to sufficient readiness: %s.",
		company, a.OverallScore, a.Leadership.Score(), CulturalScore(a.CulturalFactors), gap, a.TimelineForReadiness)
}
