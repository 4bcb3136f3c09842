package testkit

// Prompt fragments that identify each planning request.
const (
	MatchMaturity        = "Dimension to evaluate"
	MatchAspects         = "identify key areas for transformation"
	MatchPersonas        = "creating diverse digital transformation expert personas"
	MatchRecommendations = "creating actionable recommendations"
	MatchPlan            = "creating a comprehensive transformation plan"
	MatchQuestion        = "strategic consultant"
	MatchQueries         = "research assistant"
	MatchAnswer          = "specializing in"
)

// ScriptedCitationURL is the one URL the scripted run cites.
const ScriptedCitationURL = "https://example.com/cdp"

// ScriptedSearchItems are the hits to serve alongside NewScriptedPlannerClient.
func ScriptedSearchItems() []SearchItem {
	return []SearchItem{
		{Title: "CDP guide", URL: ScriptedCitationURL, Snippet: "Unify profiles before personalising."},
	}
}

// NewScriptedPlannerClient answers every planning prompt with a small valid
// reply: one aspect, one expert named Dana Lee, two recommendations and a plan
// titled "Acme Digital 2027". Readiness prompts are left unscripted so that
// stage falls back.
func NewScriptedPlannerClient() *MockLLMClient {
	return NewMockLLMClient("mock").
		On(MatchMaturity, `{"current_score": 2.5, "target_score": 3.5, "improvement_areas": ["Integrate systems"]}`).
		On(MatchAspects, `{"aspects": [{"title": "Customer Data", "description": "One customer view"}]}`).
		On(MatchPersonas,
			`{"experts": [{"name": "Dana Lee", "role": "CDO", "expertise_area": "Customer Data", "description": "Built two CDPs."}]}`).
		On(MatchRecommendations, `{"recommendations": [
			{"title": "Build a CDP", "details": "d", "priority": "High", "cited_urls": ["`+ScriptedCitationURL+`"]},
			{"title": "Replace the POS", "details": "d", "priority": "Medium"}
		]}`).
		On(MatchPlan, `{"title": "Acme Digital 2027", "executive_summary": "s",
			"recommendations": [{"title": "Replace the POS"}], "implementation_roadmap": "r", "success_metrics": ["NPS +10"]}`).
		On(MatchQuestion, "How should Acme unify its customer data?").
		On(MatchQueries, `{"queries": ["retail customer data platform"]}`).
		On(MatchAnswer, `{"answer": "Start with a customer data platform.", "cited_urls": ["`+ScriptedCitationURL+`"]}`)
}
