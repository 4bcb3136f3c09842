// Package ratelimit provides rate limiting functionality for LLM clients.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/utils"
)

// bufferFactor keeps the bucket below the provider's advertised limit to absorb
// token estimation error.
const bufferFactor = 0.9

// Limiter defines the interface for rate limiting implementations.
type Limiter interface {
	// Acquire blocks until tokens and a concurrency slot are available or ctx is done.
	// The returned release function must be called to return the concurrency slot.
	Acquire(ctx context.Context, tokens int, caller string) (release func(), err error)

	// Stats returns current limiter statistics.
	Stats() Stats
}

// TokenEstimator estimates the number of tokens needed for a request.
type TokenEstimator interface {
	// EstimatePrompt estimates the number of prompt tokens for a request.
	EstimatePrompt(req llm.CompletionRequest) int
}

// Config defines rate limiting configuration for a provider.
type Config struct {
	TokensPerMinute int `json:"tokens_per_minute" mapstructure:"tokens_per_minute"` // 0 disables the token bucket
	MaxConcurrency  int `json:"max_concurrency" mapstructure:"max_concurrency"`     // 0 disables the semaphore
}

// DefaultTokenEstimator provides token estimation using TikToken.
type DefaultTokenEstimator struct{}

// NewDefaultTokenEstimator creates a new default token estimator.
func NewDefaultTokenEstimator() TokenEstimator {
	return &DefaultTokenEstimator{}
}

// EstimatePrompt estimates prompt tokens using TikToken-based counting.
//
//nolint:gocritic // request passed by value to match middleware signatures
func (e *DefaultTokenEstimator) EstimatePrompt(req llm.CompletionRequest) int {
	contents := make([]string, 0, len(req.Messages))
	for i := range req.Messages {
		contents = append(contents, req.Messages[i].Content)
	}
	return utils.CountMessageTokens(contents...)
}

// Stats represents current rate limiter statistics.
type Stats struct {
	Provider        string `json:"provider"`
	AvailableTokens int    `json:"available_tokens"`
	MaxCapacity     int    `json:"max_capacity"`
	ActiveRequests  int    `json:"active_requests"`
	MaxConcurrency  int    `json:"max_concurrency"`
	TokenLimitHits  int64  `json:"token_limit_hits"`
	ConcurrencyHits int64  `json:"concurrency_hits"`
}

// TokenBucketLimiter implements rate limiting using a token bucket algorithm
// combined with concurrency limiting. The bucket refills continuously based on
// elapsed time, so no background goroutine is needed.
//
//nolint:govet // fieldalignment: Struct layout optimized for readability over memory
type TokenBucketLimiter struct {
	mu sync.Mutex

	provider string
	logger   *logx.Logger

	availableTokens float64
	maxCapacity     int
	refillPerSecond float64
	lastRefill      time.Time

	activeRequests int
	maxConcurrency int

	tokenLimitHits  int64
	concurrencyHits int64

	pollInterval time.Duration
	now          func() time.Time
}

// NewTokenBucketLimiter creates a new token bucket rate limiter for a provider.
func NewTokenBucketLimiter(provider string, cfg Config) *TokenBucketLimiter {
	maxCapacity := int(float64(cfg.TokensPerMinute) * bufferFactor)
	return &TokenBucketLimiter{
		provider:        provider,
		logger:          logx.NewLogger("ratelimit"),
		availableTokens: float64(maxCapacity),
		maxCapacity:     maxCapacity,
		refillPerSecond: float64(maxCapacity) / 60.0,
		lastRefill:      time.Now(),
		maxConcurrency:  cfg.MaxConcurrency,
		pollInterval:    100 * time.Millisecond,
		now:             time.Now,
	}
}

// Acquire atomically acquires both tokens and a concurrency slot.
// Requests larger than the whole bucket are clamped to capacity so they wait for
// a full bucket instead of blocking forever.
func (l *TokenBucketLimiter) Acquire(ctx context.Context, tokens int, caller string) (func(), error) {
	if l.maxCapacity > 0 && tokens > l.maxCapacity {
		tokens = l.maxCapacity
	}

	firstAttempt := true
	for {
		l.mu.Lock()
		l.refill()

		hasTokens := l.maxCapacity <= 0 || l.availableTokens >= float64(tokens)
		hasSlot := l.maxConcurrency <= 0 || l.activeRequests < l.maxConcurrency

		if hasTokens && hasSlot {
			if l.maxCapacity > 0 {
				l.availableTokens -= float64(tokens)
			}
			l.activeRequests++
			l.mu.Unlock()

			var once sync.Once
			return func() { once.Do(l.release) }, nil
		}

		if firstAttempt {
			if !hasTokens {
				l.tokenLimitHits++
				l.logger.Debug("%s token limit hit (need %d, have %.0f, caller: %s)",
					l.provider, tokens, l.availableTokens, caller)
			}
			if !hasSlot {
				l.concurrencyHits++
				l.logger.Debug("%s concurrency limit hit (active: %d/%d, caller: %s)",
					l.provider, l.activeRequests, l.maxConcurrency, caller)
			}
			firstAttempt = false
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rate limit wait for %s: %w", l.provider, ctx.Err())
		case <-time.After(l.pollInterval):
		}
	}
}

// refill must be called with mu held.
func (l *TokenBucketLimiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.lastRefill = now
	if elapsed <= 0 || l.maxCapacity <= 0 {
		return
	}
	l.availableTokens += elapsed * l.refillPerSecond
	if l.availableTokens > float64(l.maxCapacity) {
		l.availableTokens = float64(l.maxCapacity)
	}
}

// release returns a concurrency slot (tokens are already consumed and not refunded).
func (l *TokenBucketLimiter) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.activeRequests > 0 {
		l.activeRequests--
	}
}

// Stats returns current limiter statistics (thread-safe).
func (l *TokenBucketLimiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()

	return Stats{
		Provider:        l.provider,
		AvailableTokens: int(l.availableTokens),
		MaxCapacity:     l.maxCapacity,
		ActiveRequests:  l.activeRequests,
		MaxConcurrency:  l.maxConcurrency,
		TokenLimitHits:  l.tokenLimitHits,
		ConcurrencyHits: l.concurrencyHits,
	}
}
