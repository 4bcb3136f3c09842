package templates

import (
	"strings"
	"testing"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/domain"
)

func TestNewRendererLoadsAll(t *testing.T) {
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}

	company := domain.SampleCompany()
	data := NewPromptData(&company)
	for _, name := range AllTemplates {
		prompt, err := renderer.Render(name, data)
		if err != nil {
			t.Errorf("Failed to render template %s: %v", name, err)
			continue
		}
		if prompt.System == "" {
			t.Errorf("Template %s rendered an empty system prompt", name)
		}
	}
}

func TestRenderInterviewQuestion(t *testing.T) {
	renderer := MustNewRenderer()
	company := domain.SampleCompany()
	data := NewPromptData(&company)
	data.Persona = "Name: Dr. Ada\nRole: CTO\n"
	data.Sentinel = "This concludes our interview"

	prompt, err := renderer.Render(InterviewQuestionTemplate, data)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	for _, want := range []string{
		"Thank you for your insights. This concludes our interview.",
		"Name: Dr. Ada",
		"Company: HealthPlus Medical Group",
	} {
		if !strings.Contains(prompt.System, want) {
			t.Errorf("Expected system prompt to contain %q", want)
		}
	}
	if prompt.User != "" {
		t.Errorf("Interview question prompt should have no user block, got %q", prompt.User)
	}
	if msgs := prompt.Messages(); len(msgs) != 1 || msgs[0].Role != llm.RoleSystem {
		t.Errorf("Messages() = %+v, want a single system message", msgs)
	}
}

func TestRenderInterviewAnswerVariants(t *testing.T) {
	renderer := MustNewRenderer()
	data := &PromptData{ExpertName: "Dr__Ada", ExpertiseArea: "Cloud", ExpertDescription: "Veteran architect."}

	plain, err := renderer.Render(InterviewAnswerTemplate, data)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if strings.Contains(plain.System, "Search Results") || strings.Contains(plain.System, "cited_urls") {
		t.Error("Answer without search results must not ask for citations")
	}

	data.SearchResults = `{"https://example.com":"text"}`
	grounded, err := renderer.Render(InterviewAnswerTemplate, data)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if !strings.Contains(grounded.System, "Search Results:\n{\"https://example.com\"") {
		t.Error("Grounded answer should embed the search results")
	}
	if !strings.HasPrefix(grounded.System, "You are Dr__Ada, a digital transformation expert specializing in Cloud.") {
		t.Errorf("Unexpected prompt opening: %q", grounded.System[:60])
	}
}

func TestRenderIncludesMaturityWhenKnown(t *testing.T) {
	renderer := MustNewRenderer()
	company := domain.SampleCompany()
	data := NewPromptData(&company)
	data.Count = 6

	without, err := renderer.Render(AspectsTemplate, data)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if strings.Contains(without.User, "Digital Maturity") {
		t.Error("Maturity section should be omitted when empty")
	}
	if !strings.Contains(without.User, "Identify the 6 most important") {
		t.Error("Expected the aspect count in the user prompt")
	}

	data.Maturity = "Overall: Developing (2.4/5.0)"
	with, err := renderer.Render(AspectsTemplate, data)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	if !strings.Contains(with.User, "Digital Maturity:\nOverall: Developing") {
		t.Error("Maturity section missing")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	renderer := MustNewRenderer()
	if _, err := renderer.Render("nope.tpl.md", &PromptData{}); err == nil {
		t.Error("Expected error for unknown template")
	}
}
