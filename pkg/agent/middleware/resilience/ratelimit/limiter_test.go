package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dtplanner/pkg/agent/llm"
)

func TestAcquireConsumesTokens(t *testing.T) {
	l := NewTokenBucketLimiter("openai", Config{TokensPerMinute: 1000, MaxConcurrency: 2})
	frozen := time.Now()
	l.now = func() time.Time { return frozen }
	l.lastRefill = frozen

	release, err := l.Acquire(context.Background(), 100, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats := l.Stats()
	if stats.AvailableTokens != 800 {
		t.Errorf("expected 800 tokens left (900 capacity - 100), got %d", stats.AvailableTokens)
	}
	if stats.ActiveRequests != 1 {
		t.Errorf("expected 1 active request, got %d", stats.ActiveRequests)
	}

	release()
	release() // idempotent
	if got := l.Stats().ActiveRequests; got != 0 {
		t.Errorf("expected 0 active requests after release, got %d", got)
	}
}

func TestAcquireBlocksOnConcurrency(t *testing.T) {
	l := NewTokenBucketLimiter("anthropic", Config{MaxConcurrency: 1})
	l.pollInterval = 5 * time.Millisecond

	release, err := l.Acquire(context.Background(), 10, "first")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, 10, "second"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline while slot is held, got %v", err)
	}
	if l.Stats().ConcurrencyHits != 1 {
		t.Errorf("expected one concurrency hit, got %d", l.Stats().ConcurrencyHits)
	}

	release()
	release2, err := l.Acquire(context.Background(), 10, "third")
	if err != nil {
		t.Fatalf("expected slot after release, got %v", err)
	}
	release2()
}

func TestRefillOverTime(t *testing.T) {
	l := NewTokenBucketLimiter("google", Config{TokensPerMinute: 600})
	now := time.Now()
	l.now = func() time.Time { return now }
	l.lastRefill = now

	if _, err := l.Acquire(context.Background(), 540, "drain"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now = now.Add(10 * time.Second) // 540/60 = 9 tokens per second
	if got := l.Stats().AvailableTokens; got != 90 {
		t.Errorf("expected 90 tokens after 10s, got %d", got)
	}
}

func TestOversizedRequestIsClamped(t *testing.T) {
	l := NewTokenBucketLimiter("ollama", Config{TokensPerMinute: 100})
	if _, err := l.Acquire(context.Background(), 10_000, "big"); err != nil {
		t.Fatalf("oversized request should be clamped, got %v", err)
	}
}

type countingClient struct {
	inFlight, peak int32
}

func (c *countingClient) Complete(_ context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	n := atomic.AddInt32(&c.inFlight, 1)
	for {
		p := atomic.LoadInt32(&c.peak)
		if n <= p || atomic.CompareAndSwapInt32(&c.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&c.inFlight, -1)
	return llm.CompletionResponse{Content: "ok"}, nil
}

func (c *countingClient) GetModelName() string { return "gpt-4o" }

func TestMiddlewareBoundsConcurrency(t *testing.T) {
	l := NewTokenBucketLimiter("openai", Config{MaxConcurrency: 2})
	l.pollInterval = time.Millisecond
	base := &countingClient{}
	client := llm.Chain(base, Middleware(l, nil, nil))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hi")}))
		}()
	}
	wg.Wait()

	if peak := atomic.LoadInt32(&base.peak); peak > 2 {
		t.Errorf("expected at most 2 concurrent calls, saw %d", peak)
	}
}
