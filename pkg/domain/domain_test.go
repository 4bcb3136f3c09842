package domain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		company CompanyProfile
		wantErr bool
	}{
		{"complete", CompanyProfile{Name: "Acme", Industry: "Retail"}, false},
		{"missing name", CompanyProfile{Industry: "Retail"}, true},
		{"blank industry", CompanyProfile{Name: "Acme", Industry: "  "}, true},
	}
	for _, tt := range tests {
		if err := tt.company.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestPromptBlock(t *testing.T) {
	c := CompanyProfile{
		Name:         "Acme",
		Industry:     "Retail",
		Goals:        []string{"a", "b"},
		Challenges:   []string{"c"},
		Technologies: []string{"Legacy POS"},
	}
	block := c.PromptBlock()
	for _, want := range []string{"Company: Acme\n", "Industry: Retail\n", "Transformation Goals: a, b\n", "Current Technologies: Legacy POS\n"} {
		if !strings.Contains(block, want) {
			t.Errorf("PromptBlock() missing %q in:\n%s", want, block)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := SampleCompany()
	clone := c.Clone()
	clone.Goals[0] = "changed"
	if c.Goals[0] == "changed" {
		t.Error("Clone shares the goals slice")
	}
}

func TestLoadCompanyProfile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "acme.yaml")
	if err := os.WriteFile(yamlPath, []byte("name: Acme\nindustry: Retail\ngoals:\n  - Improve customer experience\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCompanyProfile(yamlPath)
	if err != nil {
		t.Fatalf("LoadCompanyProfile(yaml) = %v", err)
	}
	if c.Name != "Acme" || len(c.Goals) != 1 {
		t.Errorf("unexpected profile %+v", c)
	}

	jsonPath := filepath.Join(dir, "acme.json")
	if err := os.WriteFile(jsonPath, []byte(`{"name":"Acme","industry":"Retail","challenges":["Siloed customer data"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = LoadCompanyProfile(jsonPath)
	if err != nil {
		t.Fatalf("LoadCompanyProfile(json) = %v", err)
	}
	if c.Challenges[0] != "Siloed customer data" {
		t.Errorf("unexpected challenges %v", c.Challenges)
	}

	if _, err := ParseCompanyProfile([]byte("name: NoIndustry\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestPersonaString(t *testing.T) {
	p := ExpertPersona{Name: "Dr. Ada", Role: "CTO", ExpertiseArea: "Cloud", Description: "Builds platforms"}
	want := "Name: Dr. Ada\nRole: CTO\nExpertise Area: Cloud\nDescription: Builds platforms\n"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPlanMarkdown(t *testing.T) {
	plan := &TransformationPlan{
		Title:            "Acme Goes Digital",
		ExecutiveSummary: "Summary",
		BusinessContext:  "Context",
		Recommendations: []Recommendation{{
			Title:               "Unify customer data",
			Details:             "Build a CDP",
			Rationale:           "Silos",
			ImplementationSteps: []string{"Audit", "Integrate"},
			EstimatedImpact:     "High",
			EstimatedEffort:     "Medium",
			Priority:            "High",
			References:          map[string]string{"https://b.example": "x", "https://a.example": "y"},
		}},
		ImplementationRoadmap: "Phase 1",
		SuccessMetrics:        []string{"NPS +10"},
	}
	md := plan.Markdown()
	for _, want := range []string{
		"# Acme Goes Digital\n",
		"## Executive Summary\n\nSummary",
		"# Recommendations\n\n## Unify customer data",
		"Priority: High | Impact: High | Effort: Medium",
		"- Audit\n- Integrate\n",
		"- https://a.example\n- https://b.example\n",
		"## Success Metrics\n\n- NPS +10\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown() missing %q", want)
		}
	}
}
