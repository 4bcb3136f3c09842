package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// GoogleEndpoint is the Custom Search JSON API endpoint.
const GoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleProvider implements Provider using Google Custom Search.
type GoogleProvider struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	cx         string
}

// NewGoogleProvider creates a Google Custom Search provider.
func NewGoogleProvider(apiKey, cx string, timeout time.Duration) *GoogleProvider {
	return &GoogleProvider{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   GoogleEndpoint,
		apiKey:     apiKey,
		cx:         cx,
	}
}

// WithEndpoint points the provider at another base URL.
func (p *GoogleProvider) WithEndpoint(endpoint string) *GoogleProvider {
	p.endpoint = endpoint
	return p
}

// Name returns the provider name.
func (p *GoogleProvider) Name() string {
	return "google"
}

type googleSearchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type googleSearchError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type googleSearchResponse struct {
	Error *googleSearchError `json:"error"`
	Items []googleSearchItem `json:"items"`
}

// Search performs a web search using the Custom Search API.
func (p *GoogleProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	// The API caps num at 10.
	if maxResults > 10 {
		maxResults = 10
	}
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.cx)
	params.Set("q", query)
	params.Set("num", fmt.Sprint(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var googleResp googleSearchResponse
	if unmarshalErr := json.Unmarshal(body, &googleResp); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, unmarshalErr)
	}
	if googleResp.Error != nil {
		return nil, fmt.Errorf("API error %d: %s", googleResp.Error.Code, googleResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	results := make([]Result, 0, len(googleResp.Items))
	for i := range googleResp.Items {
		item := &googleResp.Items[i]
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Content: item.Snippet,
		})
	}
	return results, nil
}
