package planning

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/dialogue"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/templates"
)

// RecommendationGenerator synthesizes recommendations from interview transcripts.
type RecommendationGenerator struct {
	generator
}

// NewRecommendationGenerator creates a generator. A nil renderer uses the embedded prompts.
func NewRecommendationGenerator(client llm.LLMClient, renderer *templates.Renderer) *RecommendationGenerator {
	return &RecommendationGenerator{newGenerator(client, renderer, "recommendations")}
}

type recommendationReply struct {
	domain.Recommendation
	CitedURLs []string `json:"cited_urls"`
}

// FormatTranscript flattens one interview into the grounding block used by the prompt.
func FormatTranscript(t *dialogue.Transcript) string {
	expert := t.Expert()
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation with %s (Expert in %s):\n", expert.Name, expert.ExpertiseArea)
	for _, m := range t.Messages() {
		fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Content)
	}
	return b.String()
}

// FormatTranscripts joins every interview into one document.
func FormatTranscripts(transcripts []*dialogue.Transcript) string {
	blocks := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		blocks = append(blocks, FormatTranscript(t))
	}
	return strings.Join(blocks, "\n\n")
}

// Generate produces recommendations grounded in the transcripts. URLs a
// recommendation cites are resolved against the references gathered during the
// interviews; unknown URLs are dropped.
func (r *RecommendationGenerator) Generate(ctx context.Context, company *domain.CompanyProfile, transcripts []*dialogue.Transcript, maturitySummary string) ([]domain.Recommendation, error) {
	data := promptData(company, maturitySummary)
	data.Interviews = FormatTranscripts(transcripts)

	var out struct {
		Recommendations []recommendationReply `json:"recommendations"`
	}
	if err := r.completeJSON(ctx, templates.RecommendationsTemplate, data, llm.TemperatureDefault, &out); err != nil {
		return nil, fmt.Errorf("generate recommendations: %w", err)
	}

	known := make(map[string]string)
	for _, t := range transcripts {
		maps.Copy(known, t.References())
	}

	recs := make([]domain.Recommendation, 0, len(out.Recommendations))
	for _, reply := range out.Recommendations {
		if strings.TrimSpace(reply.Title) == "" {
			continue
		}
		rec := reply.Recommendation
		rec.References = nil
		for _, url := range reply.CitedURLs {
			if excerpt, ok := known[url]; ok {
				if rec.References == nil {
					rec.References = make(map[string]string)
				}
				rec.References[url] = excerpt
			}
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("generate recommendations: %w", ErrEmptyResult)
	}
	r.logger.Info("generated %d recommendations from %d interviews", len(recs), len(transcripts))
	return recs, nil
}
