package readiness

// Sub-assessment names, used in logs and Assessment.FallbackSubAssessments.
const (
	SubSkills          = "skill_gaps"
	SubCulture         = "cultural_factors"
	SubChange          = "change_readiness"
	SubLeadership      = "leadership"
	SubTraining        = "training_needs"
	SubDepartments     = "departments"
	SubRecommendations = "recommendations"
	SubSummary         = "executive_summary"
)

// The fallback records are built fresh on every call so callers may modify them.

func fallbackSkillGaps() []SkillGap {
	return []SkillGap{{
		SkillArea:               "Digital Literacy",
		CurrentProficiency:      0.4,
		RequiredProficiency:     0.8,
		GapScore:                0.4,
		ImpactLevel:             "High",
		AffectedRoles:           []string{"All Staff"},
		TrainingRecommendations: []string{"Basic Digital Skills Training"},
	}}
}

func fallbackCulturalFactors() []CulturalFactor {
	return []CulturalFactor{{
		FactorName:            "Change Resistance",
		CurrentState:          "High resistance to change",
		TargetState:           "Embracing continuous improvement",
		AlignmentScore:        0.3,
		ImprovementStrategies: []string{"Change Management Program"},
		PotentialBarriers:     []string{"Long-tenured employees"},
	}}
}

func fallbackChangeMetrics() []ChangeMetric {
	return []ChangeMetric{{
		MetricName:         "Leadership Sponsorship",
		Score:              0.6,
		Interpretation:     "Moderate leadership support",
		RiskLevel:          "Medium",
		ImprovementActions: []string{"Executive alignment workshop"},
	}}
}

func fallbackLeadership() Leadership {
	return Leadership{
		VisionClarity:              0.5,
		CommitmentLevel:            0.6,
		DigitalFluency:             0.4,
		ChangeManagementCapability: 0.5,
		Strengths:                  []string{"Business domain expertise"},
		DevelopmentAreas:           []string{"Digital knowledge"},
		Recommendations:            []string{"Digital leadership training"},
	}
}

func fallbackTrainingNeeds() []TrainingNeed {
	return []TrainingNeed{{
		Topic:                   "Digital Basics",
		Priority:                "High",
		TargetAudience:          []string{"All Staff"},
		DeliveryMethods:         []string{"Online Course", "Workshops"},
		EstimatedDuration:       "4 weeks",
		Prerequisites:           []string{},
		ExpectedOutcomes:        []string{"Basic digital literacy"},
		AlignmentWithTechnology: []string{"Core Systems"},
	}}
}

func fallbackDepartments() map[string]float64 {
	return map[string]float64{
		"IT":         0.7,
		"Operations": 0.5,
		"Sales":      0.4,
		"HR":         0.3,
		"Finance":    0.5,
	}
}

// FallbackTimeline is used when no timeline could be generated.
const FallbackTimeline = "6-12 months to achieve sufficient readiness"

func fallbackKeyRecommendations() []string {
	return []string{
		"Conduct digital literacy training",
		"Establish change management program",
		"Develop digital leadership capabilities",
	}
}
