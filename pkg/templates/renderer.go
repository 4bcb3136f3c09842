// Package templates renders the LLM prompts used by every planning stage.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/domain"
)

//go:embed prompts/*.tpl.md
var templateFS embed.FS

// PromptTemplate names an embedded prompt file.
type PromptTemplate string

const (
	// InterviewQuestionTemplate drives the consultant's next question.
	InterviewQuestionTemplate PromptTemplate = "interview_question.tpl.md"
	// InterviewQueriesTemplate turns the latest question into search queries.
	InterviewQueriesTemplate PromptTemplate = "interview_queries.tpl.md"
	// InterviewAnswerTemplate is the expert's answer, with or without search results.
	InterviewAnswerTemplate PromptTemplate = "interview_answer.tpl.md"
	// MaturityDimensionTemplate scores one maturity dimension.
	MaturityDimensionTemplate PromptTemplate = "maturity_dimension.tpl.md"
	// AspectsTemplate identifies transformation aspects.
	AspectsTemplate PromptTemplate = "aspects.tpl.md"
	// PersonasTemplate generates expert personas.
	PersonasTemplate PromptTemplate = "personas.tpl.md"
	// RecommendationsTemplate synthesizes recommendations from transcripts.
	RecommendationsTemplate PromptTemplate = "recommendations.tpl.md"
	// PlanTemplate compiles the transformation plan.
	PlanTemplate PromptTemplate = "plan.tpl.md"
	// ReadinessSkillsTemplate identifies skill gaps.
	ReadinessSkillsTemplate PromptTemplate = "readiness_skills.tpl.md"
	// ReadinessCultureTemplate identifies cultural factors.
	ReadinessCultureTemplate PromptTemplate = "readiness_culture.tpl.md"
	// ReadinessChangeTemplate scores change readiness.
	ReadinessChangeTemplate PromptTemplate = "readiness_change.tpl.md"
	// ReadinessLeadershipTemplate assesses leadership.
	ReadinessLeadershipTemplate PromptTemplate = "readiness_leadership.tpl.md"
	// ReadinessTrainingTemplate derives training needs.
	ReadinessTrainingTemplate PromptTemplate = "readiness_training.tpl.md"
	// ReadinessDepartmentsTemplate scores departments.
	ReadinessDepartmentsTemplate PromptTemplate = "readiness_departments.tpl.md"
	// ReadinessRecommendationsTemplate produces key recommendations and a timeline.
	ReadinessRecommendationsTemplate PromptTemplate = "readiness_recommendations.tpl.md"
	// ReadinessSummaryTemplate writes the readiness executive summary.
	ReadinessSummaryTemplate PromptTemplate = "readiness_summary.tpl.md"
)

// AllTemplates lists every embedded prompt.
//
//nolint:gochecknoglobals // fixed registry
var AllTemplates = []PromptTemplate{
	InterviewQuestionTemplate,
	InterviewQueriesTemplate,
	InterviewAnswerTemplate,
	MaturityDimensionTemplate,
	AspectsTemplate,
	PersonasTemplate,
	RecommendationsTemplate,
	PlanTemplate,
	ReadinessSkillsTemplate,
	ReadinessCultureTemplate,
	ReadinessChangeTemplate,
	ReadinessLeadershipTemplate,
	ReadinessTrainingTemplate,
	ReadinessDepartmentsTemplate,
	ReadinessRecommendationsTemplate,
	ReadinessSummaryTemplate,
}

// PromptData holds the values a prompt may reference. Unused fields are ignored.
type PromptData struct {
	Company              string // rendered company block
	Maturity             string // maturity summary, empty when not yet assessed
	Technology           string // technology stack summary
	Persona              string
	ExpertName           string
	ExpertiseArea        string
	ExpertDescription    string
	SearchResults        string
	Sentinel             string
	Dimension            string
	DimensionDescription string
	Aspects              string
	Interviews           string
	Recommendations      string
	Context              string // free-form JSON or text for assessment prompts
	Count                int
	Score                float64
}

// NewPromptData seeds prompt data with the company block.
func NewPromptData(company *domain.CompanyProfile) *PromptData {
	return &PromptData{Company: company.PromptBlock()}
}

// Prompt is a rendered system/user pair. User is empty for prompts that are
// followed by a replayed conversation instead.
type Prompt struct {
	System string
	User   string
}

// Messages returns the prompt as completion messages, omitting an empty user part.
func (p Prompt) Messages() []llm.CompletionMessage {
	msgs := []llm.CompletionMessage{llm.NewSystemMessage(p.System)}
	if p.User != "" {
		msgs = append(msgs, llm.NewUserMessage(p.User))
	}
	return msgs
}

// Renderer renders embedded prompt templates.
type Renderer struct {
	templates map[PromptTemplate]*template.Template
}

// NewRenderer parses every embedded prompt.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		templates: make(map[PromptTemplate]*template.Template),
	}

	for _, name := range AllTemplates {
		content, err := templateFS.ReadFile("prompts/" + string(name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		tmpl, err := template.New(string(name)).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		if tmpl.Lookup("system") == nil {
			return nil, fmt.Errorf("template %s has no system block", name)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// MustNewRenderer is NewRenderer for package-level defaults; the templates are
// embedded so a failure is a build defect.
func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Render renders the named template's system and user blocks.
func (r *Renderer) Render(name PromptTemplate, data *PromptData) (Prompt, error) {
	tmpl, exists := r.templates[name]
	if !exists {
		return Prompt{}, fmt.Errorf("template %s not found", name)
	}

	system, err := execute(tmpl, "system", data)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	var user string
	if tmpl.Lookup("user") != nil {
		if user, err = execute(tmpl, "user", data); err != nil {
			return Prompt{}, fmt.Errorf("failed to render template %s: %w", name, err)
		}
	}
	return Prompt{System: system, User: user}, nil
}

func execute(tmpl *template.Template, block string, data *PromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, block, data); err != nil {
		return "", err //nolint:wrapcheck // wrapped by caller with the template name
	}
	return strings.TrimSpace(buf.String()), nil
}
