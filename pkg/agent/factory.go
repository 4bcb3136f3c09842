// Package agent provides LLM client factory with middleware chain construction.
package agent

import (
	"fmt"
	"sync"

	"dtplanner/pkg/agent/internal/llmimpl/anthropic"
	"dtplanner/pkg/agent/internal/llmimpl/google"
	"dtplanner/pkg/agent/internal/llmimpl/ollama"
	"dtplanner/pkg/agent/internal/llmimpl/openaiofficial"
	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/middleware/metrics"
	"dtplanner/pkg/agent/middleware/resilience/circuit"
	"dtplanner/pkg/agent/middleware/resilience/ratelimit"
	"dtplanner/pkg/agent/middleware/resilience/retry"
	"dtplanner/pkg/agent/middleware/resilience/timeout"
	"dtplanner/pkg/agent/middleware/validation"
	"dtplanner/pkg/config"
	"dtplanner/pkg/logx"
)

// RawClientFunc builds an unwrapped provider client.
type RawClientFunc func(provider, model, apiKey string) (llm.LLMClient, error)

// Option customizes a factory.
type Option func(*LLMClientFactory)

// WithRawClientFunc replaces provider SDK construction, e.g. with a test double.
func WithRawClientFunc(fn RawClientFunc) Option {
	return func(f *LLMClientFactory) { f.newRaw = fn }
}

// WithAPIKeyFunc replaces credential lookup.
func WithAPIKeyFunc(fn func(provider string) (string, error)) Option {
	return func(f *LLMClientFactory) { f.apiKey = fn }
}

// LLMClientFactory creates LLM clients with properly configured middleware chains.
// Circuit breakers and rate limiters are per provider and shared by every client
// the factory hands out, so parallel interviews draw from one budget.
type LLMClientFactory struct {
	cfg      *config.Config
	recorder metrics.Recorder
	logger   *logx.Logger
	newRaw   RawClientFunc
	apiKey   func(provider string) (string, error)

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
	limiters map[string]ratelimit.Limiter
	clients  map[string]llm.LLMClient
}

// NewLLMClientFactory creates a new LLM client factory with the given configuration.
func NewLLMClientFactory(cfg *config.Config, recorder metrics.Recorder, opts ...Option) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	f := &LLMClientFactory{
		cfg:      cfg,
		recorder: recorder,
		logger:   logx.NewLogger("llm-factory"),
		newRaw:   newRawClient,
		apiKey:   config.GetAPIKey,
		breakers: make(map[string]*circuit.Breaker),
		limiters: make(map[string]ratelimit.Limiter),
		clients:  make(map[string]llm.LLMClient),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForWorkload returns the client configured for a workload (interview, assessment, planning).
func (f *LLMClientFactory) ForWorkload(workload string) (llm.LLMClient, error) {
	return f.CreateClient(f.cfg.Models.ModelFor(workload))
}

// CreateClient returns a client for modelName with the full middleware chain.
// Clients are cached per model.
func (f *LLMClientFactory) CreateClient(modelName string) (llm.LLMClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[modelName]; ok {
		return c, nil
	}

	provider, err := config.GetModelProvider(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", modelName, err)
	}

	apiKey, err := f.apiKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	rawClient, err := f.newRaw(provider, modelName, apiKey)
	if err != nil {
		return nil, err
	}

	retryPolicy := retry.NewPolicy(retry.Config{
		MaxAttempts:   f.cfg.Retry.MaxAttempts,
		InitialDelay:  f.cfg.Retry.InitialDelay,
		MaxDelay:      f.cfg.Retry.MaxDelay,
		BackoffFactor: f.cfg.Retry.BackoffFactor,
		Jitter:        f.cfg.Retry.Jitter,
	}, nil)

	// Metrics -> CircuitBreaker -> Retry -> EmptyResponse -> RateLimit -> Timeout -> RawClient
	client := llm.Chain(rawClient,
		metrics.Middleware(f.recorder, nil, f.logger),
		circuit.Middleware(f.breakerFor(provider)),
		retry.Middleware(retryPolicy),
		validation.NewEmptyResponseValidator().Middleware(),
		ratelimit.Middleware(f.limiterFor(provider), nil, f.recorder),
		timeout.Middleware(f.cfg.LLM.RequestTimeout),
	)

	f.clients[modelName] = client
	f.logger.Debug("created %s client for model %s", provider, modelName)
	return client, nil
}

func (f *LLMClientFactory) breakerFor(provider string) *circuit.Breaker {
	if b, ok := f.breakers[provider]; ok {
		return b
	}
	cfg := circuit.DefaultConfig
	if f.cfg.LLM.FailureThreshold > 0 {
		cfg.FailureThreshold = f.cfg.LLM.FailureThreshold
	}
	if f.cfg.LLM.CircuitTimeout > 0 {
		cfg.Timeout = f.cfg.LLM.CircuitTimeout
	}
	logger := f.logger
	b := circuit.New(cfg, func(from, to circuit.State) {
		logger.Warn("circuit breaker for %s: %s -> %s", provider, from, to)
	})
	f.breakers[provider] = b
	return b
}

func (f *LLMClientFactory) limiterFor(provider string) ratelimit.Limiter {
	if l, ok := f.limiters[provider]; ok {
		return l
	}
	l := ratelimit.NewTokenBucketLimiter(provider, ratelimit.Config{
		TokensPerMinute: f.cfg.LLM.TokensPerMinute,
		MaxConcurrency:  f.cfg.LLM.MaxConcurrency,
	})
	f.limiters[provider] = l
	return l
}

// newRawClient creates the SDK-backed client for a provider.
func newRawClient(provider, model, apiKey string) (llm.LLMClient, error) {
	switch provider {
	case config.ProviderAnthropic:
		return anthropic.NewClaudeClientWithModel(apiKey, model), nil
	case config.ProviderOpenAI:
		return openaiofficial.NewOfficialClientWithModel(apiKey, model), nil
	case config.ProviderGoogle:
		return google.NewGeminiClientWithModel(apiKey, model), nil
	case config.ProviderOllama:
		// For Ollama the "key" is the server URL.
		return ollama.NewOllamaClientWithModel(apiKey, config.OllamaModelName(model)), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
