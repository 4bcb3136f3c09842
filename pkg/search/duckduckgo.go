package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DuckDuckGoEndpoint is the key-less HTML results page.
const DuckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider implements Provider by scraping DuckDuckGo's HTML endpoint.
// It needs no credentials and is the default when Google is not configured.
type DuckDuckGoProvider struct {
	httpClient *http.Client
	endpoint   string
}

// NewDuckDuckGoProvider creates a DuckDuckGo provider.
func NewDuckDuckGoProvider(timeout time.Duration) *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   DuckDuckGoEndpoint,
	}
}

// WithEndpoint points the provider at another base URL.
func (p *DuckDuckGoProvider) WithEndpoint(endpoint string) *DuckDuckGoProvider {
	p.endpoint = endpoint
	return p
}

// Name returns the provider name.
func (p *DuckDuckGoProvider) Name() string {
	return "duckduckgo"
}

// Search posts the query and parses result anchors out of the page.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// Set a user agent to avoid being blocked
	req.Header.Set("User-Agent", "dtplanner/1.0 (research assistant)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	results, err := parseDuckDuckGoHTML(resp.Body, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return results, nil
}

// parseDuckDuckGoHTML walks the token stream collecting result__a titles and
// result__snippet bodies. A snippet attaches to the most recent title.
func parseDuckDuckGoHTML(r io.Reader, maxResults int) ([]Result, error) {
	var (
		results []Result
		capture string // "title" or "snippet" while inside the matching anchor
		text    strings.Builder
	)

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return results, nil

		case html.StartTagToken:
			tok := z.Token()
			if tok.Data != "a" {
				continue
			}
			class, href := attr(tok, "class"), attr(tok, "href")
			switch {
			case hasClass(class, "result__a"):
				if maxResults > 0 && len(results) >= maxResults {
					return results, nil
				}
				results = append(results, Result{URL: resolveDuckDuckGoURL(href)})
				capture = "title"
				text.Reset()
			case hasClass(class, "result__snippet") && len(results) > 0:
				capture = "snippet"
				text.Reset()
			}

		case html.TextToken:
			if capture != "" {
				text.Write(z.Text())
			}

		case html.EndTagToken:
			if capture == "" {
				continue
			}
			if name, _ := z.TagName(); string(name) != "a" {
				continue
			}
			last := &results[len(results)-1]
			if capture == "title" {
				last.Title = strings.TrimSpace(text.String())
			} else {
				last.Content = strings.TrimSpace(text.String())
			}
			capture = ""
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

// resolveDuckDuckGoURL unwraps the /l/?uddg= redirect links the HTML page uses.
func resolveDuckDuckGoURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
