// Package search runs web searches that ground expert answers.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"dtplanner/pkg/config"
	"dtplanner/pkg/logx"
)

// DefaultMaxResults is the per-query result count when none is configured.
const DefaultMaxResults = 5

// maxParallelQueries bounds the fan-out of one batch.
const maxParallelQueries = 4

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Provider is a web search backend.
type Provider interface {
	// Name returns a human-readable name for the provider.
	Name() string
	// Search performs a web search and returns up to maxResults hits.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// ErrNoProvider is returned by a Searcher that has no backend configured.
var ErrNoProvider = errors.New("no search provider configured")

// QueryResults pairs a query with its hits.
type QueryResults struct {
	Query   string
	Results []Result
}

// Searcher fans a batch of queries out to a provider.
type Searcher struct {
	provider   Provider
	maxResults int
	logger     *logx.Logger
}

// NewSearcher wraps provider. A nil provider yields a Searcher whose batches always fail.
func NewSearcher(provider Provider, maxResults int) *Searcher {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Searcher{
		provider:   provider,
		maxResults: maxResults,
		logger:     logx.NewLogger("search"),
	}
}

// NewSearcherFromConfig picks the provider the configuration and credentials allow.
func NewSearcherFromConfig(cfg config.SearchConfig) *Searcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var provider Provider
	status := config.ResolveSearchProvider(cfg)
	switch status.Provider {
	case config.SearchProviderGoogle:
		provider = NewGoogleProvider(status.GoogleAPIKey, status.GoogleCX, timeout)
	case config.SearchProviderDuckDuckGo:
		provider = NewDuckDuckGoProvider(timeout)
	}
	return NewSearcher(provider, cfg.MaxResults)
}

// ProviderName reports the backend name, or "none".
func (s *Searcher) ProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// BatchSearch runs every query concurrently. Failed queries are logged and
// dropped; the survivors come back in query order. An error is returned only
// when no query succeeded.
func (s *Searcher) BatchSearch(ctx context.Context, queries []string) ([]QueryResults, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	if len(queries) == 0 {
		return nil, nil
	}

	results := make([][]Result, len(queries))
	errs := make([]error, len(queries))

	var g errgroup.Group
	g.SetLimit(maxParallelQueries)
	for i, query := range queries {
		g.Go(func() error {
			hits, err := s.provider.Search(ctx, query, s.maxResults)
			if err != nil {
				errs[i] = fmt.Errorf("query %q: %w", query, err)
				return nil
			}
			results[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	out := make([]QueryResults, 0, len(queries))
	for i, query := range queries {
		if errs[i] != nil {
			s.logger.Warn("search via %s failed: %v", s.provider.Name(), errs[i])
			continue
		}
		out = append(out, QueryResults{Query: query, Results: results[i]})
	}
	if len(out) == 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// ExcerptsByURL flattens batch results into url -> content. The first excerpt
// seen for a URL is kept; hits without a URL are skipped.
func ExcerptsByURL(batches []QueryResults) map[string]string {
	out := make(map[string]string)
	for _, batch := range batches {
		for _, r := range batch.Results {
			if r.URL == "" {
				continue
			}
			if _, seen := out[r.URL]; !seen {
				out[r.URL] = r.Content
			}
		}
	}
	return out
}
