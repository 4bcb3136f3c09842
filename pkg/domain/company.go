// Package domain defines the records exchanged between planning stages.
package domain

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CompanyProfile is the immutable input to a planning run.
type CompanyProfile struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Industry     string   `json:"industry" yaml:"industry"`
	Goals        []string `json:"goals" yaml:"goals"`
	Challenges   []string `json:"challenges" yaml:"challenges"`
	Technologies []string `json:"technologies" yaml:"technologies"`
}

// Validate checks the fields every stage relies on.
func (c *CompanyProfile) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("company name is required"))
	}
	if strings.TrimSpace(c.Industry) == "" {
		errs = append(errs, errors.New("company industry is required"))
	}
	return errors.Join(errs...)
}

// PromptBlock renders the company section shared by every prompt.
func (c *CompanyProfile) PromptBlock() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", c.Name)
	fmt.Fprintf(&b, "Industry: %s\n", c.Industry)
	fmt.Fprintf(&b, "Description: %s\n", c.Description)
	fmt.Fprintf(&b, "Current Challenges: %s\n", strings.Join(c.Challenges, ", "))
	fmt.Fprintf(&b, "Current Technologies: %s\n", strings.Join(c.Technologies, ", "))
	fmt.Fprintf(&b, "Transformation Goals: %s\n", strings.Join(c.Goals, ", "))
	return b.String()
}

// Clone returns a deep copy.
func (c CompanyProfile) Clone() CompanyProfile {
	c.Goals = append([]string(nil), c.Goals...)
	c.Challenges = append([]string(nil), c.Challenges...)
	c.Technologies = append([]string(nil), c.Technologies...)
	return c
}

// ParseCompanyProfile decodes a YAML or JSON company profile and validates it.
func ParseCompanyProfile(data []byte) (CompanyProfile, error) {
	var c CompanyProfile
	if err := yaml.Unmarshal(data, &c); err != nil {
		return CompanyProfile{}, fmt.Errorf("parse company profile: %w", err)
	}
	if err := c.Validate(); err != nil {
		return CompanyProfile{}, err
	}
	return c, nil
}

// LoadCompanyProfile reads a profile file.
func LoadCompanyProfile(path string) (CompanyProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CompanyProfile{}, fmt.Errorf("read company profile: %w", err)
	}
	c, err := ParseCompanyProfile(data)
	if err != nil {
		return CompanyProfile{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// SampleCompany returns the built-in example profile.
func SampleCompany() CompanyProfile {
	return CompanyProfile{
		Name:     "HealthPlus Medical Group",
		Industry: "Healthcare",
		Description: "A mid-sized healthcare provider with 15 clinics across the region, offering primary care " +
			"and specialized medical services. Founded in 1995, the company has grown steadily but now faces " +
			"increasing competition and changing patient expectations.",
		Goals: []string{
			"Improve patient experience through digital channels",
			"Streamline administrative processes",
			"Enable data-driven decision making",
			"Implement telemedicine capabilities",
			"Ensure HIPAA compliance with all digital solutions",
		},
		Challenges: []string{
			"Outdated electronic health record (EHR) system",
			"Limited digital interaction with patients",
			"Siloed data across departments",
			"High administrative costs",
			"Difficulty attracting younger patient demographics",
			"Growing competition from tech-savvy healthcare startups",
		},
		Technologies: []string{
			"Legacy EHR system (10+ years old)",
			"Basic website with minimal functionality",
			"On-premise infrastructure",
			"Limited data analytics capabilities",
			"Manual scheduling and billing processes",
		},
	}
}
