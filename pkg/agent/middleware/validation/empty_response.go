// Package validation provides response validation middleware for LLM clients.
package validation

import (
	"context"
	"strings"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/llmerrors"
	"dtplanner/pkg/logx"
)

const (
	textGuidance = "No response received, please try again."
	jsonGuidance = "Your previous reply did not contain a JSON document. Respond with a single JSON document and nothing else."
)

// EmptyResponseValidator retries once with guidance when a model returns nothing
// usable, then escalates as llmerrors.ErrorTypeEmptyResponse.
type EmptyResponseValidator struct {
	logger *logx.Logger
}

// NewEmptyResponseValidator creates a new validator.
func NewEmptyResponseValidator() *EmptyResponseValidator {
	return &EmptyResponseValidator{logger: logx.NewLogger("empty-response-validator")}
}

// Middleware returns a middleware function that validates LLM responses.
//
// A response is empty when its content is blank, or when the request asked for
// JSON and the content holds no JSON document. The first empty response triggers
// one immediate retry with a guidance message appended; the second is returned
// as ErrorTypeEmptyResponse so the retry layer can back off.
func (v *EmptyResponseValidator) Middleware() llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				const maxEmptyAttempts = 2

				for attempt := 1; attempt <= maxEmptyAttempts; attempt++ {
					resp, err := next.Complete(ctx, req)
					if err != nil && !llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse) {
						return resp, err //nolint:wrapcheck // Middleware intentionally passes through errors unchanged
					}
					if err == nil && !isEmptyResponse(resp, req) {
						return resp, nil
					}

					v.logger.Warn("empty response from %s (attempt %d/%d, content_length=%d)",
						next.GetModelName(), attempt, maxEmptyAttempts, len(resp.Content))

					if attempt == 1 {
						guided := req
						guided.Messages = append(append([]llm.CompletionMessage(nil), req.Messages...),
							llm.NewUserMessage(guidanceFor(req)))
						req = guided
					}
				}

				return llm.CompletionResponse{}, llmerrors.NewError(
					llmerrors.ErrorTypeEmptyResponse,
					"received inadequate response after guidance: no meaningful content",
				)
			},
			next.GetModelName,
		)
	}
}

func isEmptyResponse(resp llm.CompletionResponse, req llm.CompletionRequest) bool {
	if strings.TrimSpace(resp.Content) == "" {
		return true
	}
	return req.Format == llm.FormatJSON && llm.ExtractJSON(resp.Content) == ""
}

func guidanceFor(req llm.CompletionRequest) string {
	if req.Format == llm.FormatJSON {
		return jsonGuidance
	}
	return textGuidance
}
