package circuit

import (
	"context"
	"errors"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/llmerrors"
)

// Middleware returns a middleware function that wraps an LLM client with circuit breaker logic.
// If the circuit is OPEN, requests are rejected immediately without calling the underlying client.
// Parse failures and caller cancellations do not count against the provider.
func Middleware(breaker *Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if !breaker.Allow() {
					return llm.CompletionResponse{}, &Error{Model: next.GetModelName(), State: breaker.State()}
				}

				resp, err := next.Complete(ctx, req)
				switch {
				case err == nil:
					breaker.Record(true)
				case errors.Is(err, context.Canceled), llmerrors.Is(err, llmerrors.ErrorTypeParse):
					// not the provider's fault
				default:
					breaker.Record(false)
				}
				return resp, err //nolint:wrapcheck // Middleware should pass through errors unchanged
			},
			next.GetModelName,
		)
	}
}
