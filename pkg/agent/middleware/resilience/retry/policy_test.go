package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/llmerrors"
	"dtplanner/pkg/agent/middleware/resilience/circuit"
)

func noDelay(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialDelay: 0, MaxDelay: 0, BackoffFactor: 2.0}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"wrapped canceled", fmt.Errorf("op: %w", context.Canceled), false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"auth", &llmerrors.Error{Type: llmerrors.ErrorTypeAuth}, false},
		{"bad prompt", &llmerrors.Error{Type: llmerrors.ErrorTypeBadPrompt}, false},
		{"parse", &llmerrors.Error{Type: llmerrors.ErrorTypeParse}, false},
		{"service unavailable", llmerrors.NewServiceUnavailableError(errors.New("x"), 3), false},
		{"rate limit", &llmerrors.Error{Type: llmerrors.ErrorTypeRateLimit}, true},
		{"wrapped auth", fmt.Errorf("call: %w", &llmerrors.Error{Type: llmerrors.ErrorTypeAuth}), false},
		{"circuit open", &circuit.Error{State: circuit.Open}, false},
		{"http 401", errors.New("HTTP 401 Unauthorized"), false},
		{"http 404", errors.New("404 Not Found"), false},
		{"connection reset", errors.New("connection reset by peer"), true},
		{"unknown", errors.New("something unexpected"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.err); got != tt.want {
				t.Errorf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewPolicyDefaults(t *testing.T) {
	p := NewPolicy(Config{}, nil)
	if p.Classifier == nil {
		t.Error("expected default classifier when nil passed")
	}
	if p.Config.MaxAttempts != 1 {
		t.Errorf("expected attempts floor of 1, got %d", p.Config.MaxAttempts)
	}
}

func TestCalculateDelay(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 10, InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2.0}, nil)
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 0},
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := p.CalculateDelay(tt.attempt); got != tt.want {
			t.Errorf("CalculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestCalculateDelayWithJitter(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 30 * time.Second, BackoffFactor: 2.0, Jitter: true}, nil)
	var longer, shorter int
	for i := 0; i < 200; i++ {
		delay := p.CalculateDelay(2)
		if delay < 900*time.Millisecond || delay > 1100*time.Millisecond {
			t.Fatalf("expected delay within 10%% of 1s, got %v", delay)
		}
		switch {
		case delay > time.Second:
			longer++
		case delay < time.Second:
			shorter++
		}
	}
	if longer == 0 || shorter == 0 {
		t.Errorf("jitter should spread both ways, got %d longer and %d shorter", longer, shorter)
	}
}

func TestDoStopsAtCeiling(t *testing.T) {
	p := NewPolicy(noDelay(3), nil)
	calls := 0
	attempts, err := p.Do(context.Background(), func(_ context.Context, _ int) error {
		calls++
		return errors.New("temporary failure")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 || attempts != 3 {
		t.Errorf("expected 3 calls and attempts, got calls=%d attempts=%d", calls, attempts)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	p := NewPolicy(noDelay(3), nil)
	calls := 0
	_, err := p.Do(context.Background(), func(_ context.Context, _ int) error {
		calls++
		return &llmerrors.Error{Type: llmerrors.ErrorTypeAuth}
	})
	if !llmerrors.Is(err, llmerrors.ErrorTypeAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestDoSucceedsAfterTransientFailure(t *testing.T) {
	p := NewPolicy(noDelay(3), nil)
	attempts, err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		if attempt < 2 {
			return errors.New("503 upstream")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoRespectsCancellation(t *testing.T) {
	p := NewPolicy(Config{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, BackoffFactor: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	attempts, err := p.Do(ctx, func(_ context.Context, _ int) error {
		calls++
		cancel()
		return errors.New("temporary")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 || attempts != 1 {
		t.Errorf("expected cancellation to stop after one attempt, got calls=%d attempts=%d", calls, attempts)
	}
}

type scriptedClient struct {
	errs  []error
	calls int
}

func (s *scriptedClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.CompletionResponse{}, s.errs[i]
	}
	return llm.CompletionResponse{Content: "ok"}, nil
}

func (s *scriptedClient) GetModelName() string { return "scripted" }

func TestMiddlewareRetriesThenSucceeds(t *testing.T) {
	base := &scriptedClient{errs: []error{errors.New("502 bad gateway")}}
	client := llm.Chain(base, Middleware(NewPolicy(noDelay(3), nil)))

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" || base.calls != 2 {
		t.Errorf("expected success on second call, got %q after %d calls", resp.Content, base.calls)
	}
}

func TestMiddlewareExhaustionIsServiceUnavailable(t *testing.T) {
	transient := errors.New("connection refused")
	base := &scriptedClient{errs: []error{transient, transient, transient}}
	client := llm.Chain(base, Middleware(NewPolicy(noDelay(3), nil)))

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	if !llmerrors.IsServiceUnavailable(err) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
	if !errors.Is(err, transient) {
		t.Error("expected the last cause to be wrapped")
	}
}

func TestMiddlewarePassesPermanentErrors(t *testing.T) {
	authErr := &llmerrors.Error{Type: llmerrors.ErrorTypeAuth, Message: "bad key"}
	base := &scriptedClient{errs: []error{authErr}}
	client := llm.Chain(base, Middleware(NewPolicy(noDelay(3), nil)))

	_, err := client.Complete(context.Background(), llm.NewCompletionRequest(nil))
	if !llmerrors.Is(err, llmerrors.ErrorTypeAuth) {
		t.Errorf("expected auth error to pass through, got %v", err)
	}
	if base.calls != 1 {
		t.Errorf("expected no retries, got %d calls", base.calls)
	}
}
