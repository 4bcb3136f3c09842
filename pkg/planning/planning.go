// Package planning holds the generative planning stages: aspect analysis,
// persona generation, recommendation synthesis and plan compilation.
package planning

import (
	"context"
	"errors"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/templates"
)

// Defaults for the number of generated items.
const (
	DefaultAspects = 6
	DefaultExperts = 5
)

// ErrEmptyResult is returned when the model produced a well-formed but empty answer.
var ErrEmptyResult = errors.New("model returned no items")

// generator carries what every planning stage needs to make a call.
type generator struct {
	client   llm.LLMClient
	renderer *templates.Renderer
	logger   *logx.Logger
}

func newGenerator(client llm.LLMClient, renderer *templates.Renderer, component string) generator {
	if renderer == nil {
		renderer = templates.MustNewRenderer()
	}
	return generator{client: client, renderer: renderer, logger: logx.NewLogger(component)}
}

// completeJSON renders tmpl and decodes the structured reply into out.
func (g *generator) completeJSON(ctx context.Context, tmpl templates.PromptTemplate, data *templates.PromptData, temperature float32, out any) error {
	prompt, err := g.renderer.Render(tmpl, data)
	if err != nil {
		return err //nolint:wrapcheck // names the template
	}
	req := llm.NewJSONRequest(prompt.Messages())
	req.Temperature = temperature
	return llm.CompleteJSON(ctx, g.client, req, out) //nolint:wrapcheck // classified llm error
}

func promptData(company *domain.CompanyProfile, maturitySummary string) *templates.PromptData {
	data := templates.NewPromptData(company)
	data.Maturity = maturitySummary
	return data
}
