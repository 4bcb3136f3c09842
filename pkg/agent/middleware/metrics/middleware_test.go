package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/llmerrors"
	"dtplanner/pkg/agent/middleware/resilience/circuit"
)

type observation struct {
	model, stage, actor string
	success             bool
	errorType           string
}

type captureRecorder struct {
	NoopRecorder
	observed []observation
}

func (c *captureRecorder) ObserveRequest(model, stage, actor string, _, _ int, success bool, errorType string, _ time.Duration) {
	c.observed = append(c.observed, observation{model, stage, actor, success, errorType})
}

type stubClient struct{ err error }

func (s stubClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	if s.err != nil {
		return llm.CompletionResponse{}, s.err
	}
	return llm.CompletionResponse{Content: "answer"}, nil
}

func (s stubClient) GetModelName() string { return "gpt-4o-mini" }

func TestMiddlewareLabelsFromCaller(t *testing.T) {
	rec := &captureRecorder{}
	client := llm.Chain(stubClient{}, Middleware(rec, nil, nil))

	ctx := llm.WithCaller(context.Background(), llm.Caller{Stage: "interviews", Actor: "Dr_Smith"})
	if _, err := client.Complete(ctx, llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("q")})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.observed) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(rec.observed))
	}
	got := rec.observed[0]
	if got.model != "gpt-4o-mini" || got.stage != "interviews" || got.actor != "Dr_Smith" || !got.success {
		t.Errorf("unexpected observation: %+v", got)
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&circuit.Error{State: circuit.Open}, "circuit_breaker"},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), "timeout"},
		{context.Canceled, "canceled"},
		{llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow down"), "rate_limit"},
		{errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		if got := errorType(tt.err); got != tt.want {
			t.Errorf("errorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveRequest("claude-sonnet-4", "plan", "", 100, 20, true, "", time.Second)
	rec.ObserveRequest("claude-sonnet-4", "plan", "", 0, 0, false, "timeout", time.Second)
	rec.IncThrottle("claude-sonnet-4", "rate_limit")

	if got := testutil.ToFloat64(rec.requestsTotal.WithLabelValues("claude-sonnet-4", "plan", "success", "")); got != 1 {
		t.Errorf("expected 1 successful request, got %v", got)
	}
	if got := testutil.ToFloat64(rec.tokensTotal.WithLabelValues("claude-sonnet-4", "plan", "prompt")); got != 100 {
		t.Errorf("expected 100 prompt tokens, got %v", got)
	}
	if got := testutil.ToFloat64(rec.throttleTotal.WithLabelValues("claude-sonnet-4", "rate_limit")); got != 1 {
		t.Errorf("expected 1 throttle event, got %v", got)
	}
}
