package retry

import (
	"context"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/llmerrors"
)

// Middleware returns a middleware function that wraps an LLM client with retry logic.
// It will retry failed requests according to the configured policy, with exponential backoff.
func Middleware(policy *Policy) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var resp llm.CompletionResponse
				_, err := policy.Do(ctx, func(ctx context.Context, _ int) error {
					var callErr error
					resp, callErr = next.Complete(ctx, req)
					return callErr
				})
				if err == nil {
					return resp, nil
				}

				// Exhausting retries on a retryable error surfaces as ServiceUnavailable
				// so callers can tell "gave up" apart from "refused".
				if ctx.Err() == nil && policy.ShouldRetry(err) {
					return llm.CompletionResponse{}, llmerrors.NewServiceUnavailableError(err, policy.Config.MaxAttempts)
				}
				return llm.CompletionResponse{}, err
			},
			next.GetModelName,
		)
	}
}
