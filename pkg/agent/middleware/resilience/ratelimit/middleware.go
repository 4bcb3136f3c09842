package ratelimit

import (
	"context"
	"time"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/middleware/metrics"
)

// Middleware returns a middleware function that wraps an LLM client with rate limiting.
// It estimates token usage and acquires budget before each request.
func Middleware(limiter Limiter, estimator TokenEstimator, recorder metrics.Recorder) llm.Middleware {
	if estimator == nil {
		estimator = NewDefaultTokenEstimator()
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}

	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				model := next.GetModelName()
				caller := llm.CallerFrom(ctx)

				totalTokens := estimator.EstimatePrompt(req) + req.MaxTokens

				start := time.Now()
				release, err := limiter.Acquire(ctx, totalTokens, caller.Actor)
				if err != nil {
					recorder.IncThrottle(model, "rate_limit")
					return llm.CompletionResponse{}, err
				}
				defer release()
				recorder.ObserveQueueWait(model, time.Since(start))

				return next.Complete(ctx, req) //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}
