package metrics

import (
	"context"
	"errors"
	"time"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/llmerrors"
	"dtplanner/pkg/agent/middleware/resilience/circuit"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/utils"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor is a function that extracts token usage from a request and response.
type UsageExtractor func(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with TikToken since not every provider reports usage.
//
//nolint:gocritic // signature shared with custom extractors
func DefaultUsageExtractor(req llm.CompletionRequest, resp llm.CompletionResponse) (promptTokens, completionTokens int) {
	contents := make([]string, 0, len(req.Messages))
	for i := range req.Messages {
		contents = append(contents, req.Messages[i].Content)
	}
	return utils.CountMessageTokens(contents...), utils.CountTokensSimple(resp.Content)
}

// Middleware returns a middleware function that records metrics for LLM operations.
// Stage and actor labels come from llm.CallerFrom(ctx).
func Middleware(recorder Recorder, usageExtractor UsageExtractor, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}
	if recorder == nil {
		recorder = Nop()
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				model := next.GetModelName()
				caller := llm.CallerFrom(ctx)

				resp, err := next.Complete(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				recorder.ObserveRequest(model, caller.Stage, caller.Actor,
					promptTokens, completionTokens, err == nil, errorType(err), duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Debug("LLM request: model=%s stage=%s actor=%s tokens=%d+%d status=%s duration=%dms",
						model, caller.Stage, caller.Actor, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}

// errorType classifies errors for metrics labeling.
func errorType(err error) string {
	if err == nil {
		return ""
	}

	var circuitErr *circuit.Error
	var llmErr *llmerrors.Error
	switch {
	case errors.As(err, &circuitErr):
		return "circuit_breaker"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &llmErr):
		return llmErr.Type.String()
	default:
		return "unknown"
	}
}
