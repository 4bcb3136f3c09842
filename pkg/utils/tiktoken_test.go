package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewTokenCounter(t *testing.T) {
	for _, model := range []string{"gpt-4o", "claude-sonnet-4", "llama3", "unknown-model"} {
		t.Run(model, func(t *testing.T) {
			counter, err := NewTokenCounter(model)
			if err != nil {
				t.Fatalf("NewTokenCounter(%s) failed: %v", model, err)
			}
			if counter == nil {
				t.Fatalf("NewTokenCounter(%s) returned nil counter", model)
			}
		})
	}
}

func TestCountTokens(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4")
	if err != nil {
		t.Fatalf("Failed to create token counter: %v", err)
	}

	tests := []struct {
		text      string
		minTokens int
		maxTokens int
	}{
		{"", 0, 0},
		{"Hello world", 2, 3},
		{"Digital transformation roadmap for a retail company.", 7, 12},
		{strings.Repeat("word ", 100), 90, 110},
	}
	for _, tt := range tests {
		got := counter.CountTokens(tt.text)
		if got < tt.minTokens || got > tt.maxTokens {
			t.Errorf("CountTokens(%q) = %d, want between %d and %d", tt.text, got, tt.minTokens, tt.maxTokens)
		}
	}
}

func TestCountTokensNilCounter(t *testing.T) {
	var tc *TokenCounter
	if got := tc.CountTokens("12345678"); got != 2 {
		t.Errorf("expected character fallback of 2, got %d", got)
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	counter, err := NewTokenCounter("gpt-4")
	if err != nil {
		t.Fatalf("Failed to create token counter: %v", err)
	}
	long := strings.Repeat("modernize the legacy point of sale ", 200)
	out := counter.TruncateToTokenLimit(long, 50)
	if !strings.HasSuffix(out, "...") {
		t.Error("expected truncated text to end with ellipsis")
	}
	if counter.CountTokens(out) > 60 {
		t.Errorf("truncated text still too long: %d tokens", counter.CountTokens(out))
	}
	if counter.TruncateToTokenLimit("short", 50) != "short" {
		t.Error("short text should be unchanged")
	}
}

func TestTruncateRunes(t *testing.T) {
	s := "héllo wörld"
	for n := 0; n <= len(s)+1; n++ {
		out := TruncateRunes(s, n)
		if !utf8.ValidString(out) {
			t.Errorf("TruncateRunes(%d) produced invalid UTF-8: %q", n, out)
		}
		if len(out) > n {
			t.Errorf("TruncateRunes(%d) produced %d bytes", n, len(out))
		}
	}
}
