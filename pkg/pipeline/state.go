// Package pipeline runs the planning stages in order over one shared State.
package pipeline

import (
	"fmt"
	"strings"

	"dtplanner/pkg/dialogue"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/maturity"
	"dtplanner/pkg/readiness"
	"dtplanner/pkg/technology"
)

// State is threaded through every stage. Each field after Company has exactly
// one writer stage; later stages only read it.
type State struct {
	RunID           string                     `json:"run_id"`
	Company         domain.CompanyProfile      `json:"company"`
	Maturity        *maturity.Assessment       `json:"maturity_assessment,omitempty"`
	Aspects         []domain.Aspect            `json:"transformation_aspects,omitempty"`
	Experts         []domain.ExpertPersona     `json:"experts,omitempty"`
	Consultations   []*dialogue.Transcript     `json:"consultation_results,omitempty"`
	Recommendations []domain.Recommendation    `json:"recommendations,omitempty"`
	Plan            *domain.TransformationPlan `json:"transformation_plan,omitempty"`
	TechStack       *technology.Stack          `json:"technology_stack,omitempty"`
	Readiness       *readiness.Assessment      `json:"organizational_readiness,omitempty"`
}

// NewState starts a state for company.
func NewState(runID string, company domain.CompanyProfile) *State {
	return &State{RunID: runID, Company: company.Clone()}
}

// Clone returns a copy a stage may write to without touching s. Fields are
// replaced wholesale by their writer stage, so the slices and pointers are
// shared rather than deep copied.
func (s *State) Clone() *State {
	c := *s
	return &c
}

// MaturitySummary is the maturity context for prompts, or "" before stage one.
func (s *State) MaturitySummary() string {
	if s.Maturity == nil {
		return ""
	}
	return s.Maturity.Summary()
}

// Markdown section names.
const (
	SectionPlan       = "plan"
	SectionMaturity   = "maturity"
	SectionTechnology = "technology"
	SectionReadiness  = "readiness"
	SectionReport     = "report"
)

// Sections lists the individually exportable sections.
//
//nolint:gochecknoglobals // fixed export order
var Sections = []string{SectionPlan, SectionMaturity, SectionTechnology, SectionReadiness}

// Markdown renders one section. The report section concatenates all that are present.
func (s *State) Markdown(section string) (string, error) {
	switch section {
	case SectionPlan:
		if s.Plan != nil {
			return s.Plan.Markdown(), nil
		}
	case SectionMaturity:
		if s.Maturity != nil {
			return s.Maturity.Markdown(), nil
		}
	case SectionTechnology:
		if s.TechStack != nil {
			return s.TechStack.Markdown(), nil
		}
	case SectionReadiness:
		if s.Readiness != nil {
			return s.Readiness.Markdown(), nil
		}
	case SectionReport:
		var parts []string
		for _, name := range Sections {
			if md, err := s.Markdown(name); err == nil {
				parts = append(parts, md)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n---\n\n"), nil
		}
	default:
		return "", fmt.Errorf("unknown section %q", section)
	}
	return "", fmt.Errorf("section %q is not available for run %s", section, s.RunID)
}
