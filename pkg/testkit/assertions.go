// Package testkit provides scripted LLM clients, mock HTTP services and
// assertions for planning runs.
package testkit

import (
	"sort"
	"strings"
	"testing"

	"dtplanner/pkg/dialogue"
	"dtplanner/pkg/domain"
)

// AssertSpeakers verifies the transcript's speaker sequence.
func AssertSpeakers(t *testing.T, transcript *dialogue.Transcript, expected ...string) {
	t.Helper()
	msgs := transcript.Messages()
	got := make([]string, len(msgs))
	for i := range msgs {
		got[i] = msgs[i].Speaker
	}
	if strings.Join(got, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected speakers %v, got %v", expected, got)
	}
}

// AssertAlternates verifies that the two speakers take strict turns starting with first.
func AssertAlternates(t *testing.T, transcript *dialogue.Transcript, first, second string) {
	t.Helper()
	msgs := transcript.Messages()
	for i := range msgs {
		want := first
		if i%2 == 1 {
			want = second
		}
		if msgs[i].Speaker != want {
			t.Errorf("Expected message %d from %s, got %s", i, want, msgs[i].Speaker)
			return
		}
	}
}

// AssertReferencesKnown verifies that every recommendation only cites URLs in known.
func AssertReferencesKnown(t *testing.T, recs []domain.Recommendation, known map[string]string) {
	t.Helper()
	for i := range recs {
		for url := range recs[i].References {
			if _, ok := known[url]; !ok {
				t.Errorf("Recommendation %q cites unknown URL %s", recs[i].Title, url)
			}
		}
	}
}

// AssertRecommendationTitles verifies the recommendation titles in order.
func AssertRecommendationTitles(t *testing.T, recs []domain.Recommendation, expected ...string) {
	t.Helper()
	if len(recs) != len(expected) {
		t.Errorf("Expected %d recommendations, got %d", len(expected), len(recs))
		return
	}
	for i := range recs {
		if recs[i].Title != expected[i] {
			t.Errorf("Expected recommendation %d to be %q, got %q", i, expected[i], recs[i].Title)
		}
	}
}

// AssertMarkdownSections verifies that md contains each heading, in order.
func AssertMarkdownSections(t *testing.T, md string, headings ...string) {
	t.Helper()
	pos := 0
	for _, h := range headings {
		idx := strings.Index(md[pos:], h)
		if idx < 0 {
			t.Errorf("Expected heading %q after offset %d", h, pos)
			return
		}
		pos += idx + len(h)
	}
}

// SortedURLs returns the reference URLs of m in order, for stable comparisons.
func SortedURLs(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for url := range m {
		out = append(out, url)
	}
	sort.Strings(out)
	return out
}
