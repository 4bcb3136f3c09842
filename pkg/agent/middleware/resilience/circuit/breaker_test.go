package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"dtplanner/pkg/agent/llm"
)

type failingClient struct{ calls int }

func (f *failingClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.calls++
	return llm.CompletionResponse{}, errors.New("503 service unavailable")
}

func (f *failingClient) GetModelName() string { return "test-model" }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	var transitions []State
	b := New(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute}, func(_, to State) {
		transitions = append(transitions, to)
	})

	b.Record(false)
	if b.State() != Closed {
		t.Fatalf("expected CLOSED after one failure, got %s", b.State())
	}
	b.Record(false)
	if b.State() != Open {
		t.Fatalf("expected OPEN after threshold, got %s", b.State())
	}
	if b.Allow() {
		t.Error("open breaker should reject requests")
	}
	if len(transitions) != 1 || transitions[0] != Open {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Now()
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second}, nil)
	b.now = func() time.Time { return now }

	b.Record(false)
	now = now.Add(2 * time.Second)
	if !b.Allow() {
		t.Fatal("expected half-open probe to be allowed after timeout")
	}
	if b.State() != HalfOpen {
		t.Fatalf("expected HALF_OPEN, got %s", b.State())
	}
	b.Record(true)
	if b.State() != Closed {
		t.Errorf("expected CLOSED after successful probe, got %s", b.State())
	}
}

func TestMiddlewareShortCircuits(t *testing.T) {
	base := &failingClient{}
	b := New(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour}, nil)
	client := llm.Chain(base, Middleware(b))

	_, _ = client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))

	var circuitErr *Error
	if !errors.As(err, &circuitErr) {
		t.Fatalf("expected circuit error, got %v", err)
	}
	if circuitErr.Model != "test-model" {
		t.Errorf("expected model name in error, got %q", circuitErr.Model)
	}
	if base.calls != 1 {
		t.Errorf("expected base to be called once, got %d", base.calls)
	}
}
