// Package retry provides retry logic with exponential backoff for resilient LLM calls
// and pipeline stages.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"dtplanner/pkg/agent/llmerrors"
	"dtplanner/pkg/agent/middleware/resilience/circuit"
)

// Config defines configuration for retry behavior.
type Config struct {
	MaxAttempts   int           `json:"max_attempts" mapstructure:"max_attempts"`     // Maximum number of attempts (including initial)
	InitialDelay  time.Duration `json:"initial_delay" mapstructure:"initial_delay"`   // Initial delay before first retry
	MaxDelay      time.Duration `json:"max_delay" mapstructure:"max_delay"`           // Maximum delay between retries
	BackoffFactor float64       `json:"backoff_factor" mapstructure:"backoff_factor"` // Multiplier for exponential backoff
	Jitter        bool          `json:"jitter" mapstructure:"jitter"`                 // Add random jitter to prevent thundering herd
}

// DefaultConfig provides reasonable defaults for retry behavior.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	MaxAttempts:   3,
	InitialDelay:  100 * time.Millisecond,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// Classifier determines if an error should be retried.
type Classifier func(error) bool

// ShouldRetry is the default error classifier. It uses a blocklist: anything that
// is not known to be permanent is retried.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	// Caller cancellation is final. DeadlineExceeded is not: per-request and
	// per-stage timeouts wrap it while the parent context is still live.
	if errors.Is(err, context.Canceled) {
		return false
	}

	var circuitErr *circuit.Error
	if errors.As(err, &circuitErr) {
		return false
	}

	var llmErr *llmerrors.Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, permanent := range []string{"400", "401", "403", "404", "unauthorized", "forbidden", "invalid api key"} {
		if strings.Contains(errStr, permanent) {
			return false
		}
	}

	return true
}

// Policy encapsulates retry configuration and logic.
//
//nolint:govet // Simple struct, logical grouping preferred
type Policy struct {
	Config     Config
	Classifier Classifier
}

// NewPolicy creates a new retry policy with the given configuration and classifier.
func NewPolicy(config Config, classifier Classifier) *Policy {
	if classifier == nil {
		classifier = ShouldRetry
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &Policy{
		Config:     config,
		Classifier: classifier,
	}
}

// CalculateDelay computes the delay for the given attempt number.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := time.Duration(float64(p.Config.InitialDelay) * math.Pow(p.Config.BackoffFactor, float64(attempt-2)))

	if delay > p.Config.MaxDelay {
		delay = p.Config.MaxDelay
	}

	if p.Config.Jitter && delay > 0 {
		jitterFactor := rand.Float64()*2 - 1 // [-1, 1)
		jitter := time.Duration(float64(delay) * 0.1 * jitterFactor)
		delay += jitter
		if delay < 0 {
			delay = p.Config.InitialDelay
		}
	}

	return delay
}

// ShouldRetry determines if an error should be retried based on the configured classifier.
func (p *Policy) ShouldRetry(err error) bool {
	return p.Classifier(err)
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempt
// ceiling is reached. It returns the number of attempts made alongside the last error.
// A cancelled parent context stops the loop between attempts.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	var lastErr error
	attempt := 0
	for attempt < p.Config.MaxAttempts {
		attempt++
		if attempt > 1 {
			if delay := p.CalculateDelay(attempt); delay > 0 {
				select {
				case <-ctx.Done():
					return attempt - 1, fmt.Errorf("retry cancelled: %w", ctx.Err())
				case <-time.After(delay):
				}
			}
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil || !p.ShouldRetry(lastErr) {
			break
		}
	}
	return attempt, lastErr
}
