// Package metrics records pipeline metrics and reads LLM usage back from Prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// TokenUsage is aggregated LLM usage for one label value.
type TokenUsage struct {
	Label            string `json:"label"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
	Errors           int64  `json:"errors"`
}

// QueryService provides methods to query metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// UsageByStage aggregates token and request counts per pipeline stage.
func (q *QueryService) UsageByStage(ctx context.Context) (map[string]*TokenUsage, error) {
	return q.usageBy(ctx, "stage")
}

// UsageByModel aggregates token and request counts per model.
func (q *QueryService) UsageByModel(ctx context.Context) (map[string]*TokenUsage, error) {
	return q.usageBy(ctx, "model")
}

func (q *QueryService) usageBy(ctx context.Context, label string) (map[string]*TokenUsage, error) {
	result := make(map[string]*TokenUsage)
	get := func(l string) *TokenUsage {
		u, ok := result[l]
		if !ok {
			u = &TokenUsage{Label: l}
			result[l] = u
		}
		return u
	}

	queries := []struct {
		expr  string
		apply func(u *TokenUsage, v int64)
	}{
		{
			fmt.Sprintf(`sum by (%s) (llm_tokens_total{type="prompt"})`, label),
			func(u *TokenUsage, v int64) { u.PromptTokens = v },
		},
		{
			fmt.Sprintf(`sum by (%s) (llm_tokens_total{type="completion"})`, label),
			func(u *TokenUsage, v int64) { u.CompletionTokens = v },
		},
		{
			fmt.Sprintf(`sum by (%s) (llm_requests_total)`, label),
			func(u *TokenUsage, v int64) { u.Requests = v },
		},
		{
			fmt.Sprintf(`sum by (%s) (llm_requests_total{status="error"})`, label),
			func(u *TokenUsage, v int64) { u.Errors = v },
		},
	}

	for _, qr := range queries {
		value, _, err := q.queryAPI.Query(ctx, qr.expr, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", qr.expr, err)
		}
		vector, ok := value.(model.Vector)
		if !ok {
			continue
		}
		for _, sample := range vector {
			name := string(sample.Metric[model.LabelName(label)])
			qr.apply(get(name), int64(sample.Value))
		}
	}

	for _, u := range result {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return result, nil
}
