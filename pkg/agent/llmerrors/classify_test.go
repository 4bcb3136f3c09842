package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   ErrorType
	}{
		{"explicit 429", errors.New("boom"), 429, ErrorTypeRateLimit},
		{"explicit 401", errors.New("boom"), 401, ErrorTypeAuth},
		{"explicit 503", errors.New("boom"), 503, ErrorTypeTransient},
		{"explicit 400", errors.New("boom"), 400, ErrorTypeBadPrompt},
		{"status in text", errors.New(`POST "https://api.example.com/v1": 429 Too Many Requests`), 0, ErrorTypeRateLimit},
		{"status code text", errors.New("status code: 502 bad gateway"), 0, ErrorTypeTransient},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), 0, ErrorTypeTransient},
		{"connection reset", errors.New("read: connection reset by peer"), 0, ErrorTypeTransient},
		{"quota", errors.New("quota exhausted"), 0, ErrorTypeRateLimit},
		{"bad key", errors.New("invalid api key provided"), 0, ErrorTypeAuth},
		{"mystery", errors.New("something odd"), 0, ErrorTypeUnknown},
		{"already classified", NewError(ErrorTypeParse, "x"), 500, ErrorTypeParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.status)
			if got.Type != tt.want {
				t.Errorf("Classify() type = %s, want %s", got.Type, tt.want)
			}
		})
	}
}

func TestClassifyKeepsCause(t *testing.T) {
	cause := errors.New("upstream")
	got := Classify(cause, 500)
	if !errors.Is(got, cause) {
		t.Error("classified error should unwrap to its cause")
	}
	if Classify(nil, 0) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestExtractStatusCode(t *testing.T) {
	tests := map[string]int{
		"status: 401 unauthorized":  401,
		"HTTP 504 gateway timeout":  504,
		"no numbers here":           0,
		"took 4000ms":               0,
	}
	for in, want := range tests {
		if got := ExtractStatusCode(in); got != want {
			t.Errorf("ExtractStatusCode(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestErrorTypeHelpers(t *testing.T) {
	wrapped := fmt.Errorf("plan: %w", NewServiceUnavailableError(errors.New("503"), 3))
	if TypeOf(wrapped) != ErrorTypeServiceUnavailable || !IsServiceUnavailable(wrapped) {
		t.Errorf("TypeOf(%v) = %s", wrapped, TypeOf(wrapped))
	}
	if TypeOf(errors.New("plain")) != ErrorTypeUnknown {
		t.Error("unclassified errors should be unknown")
	}
	if (&Error{}).Type.String() != "unknown" {
		t.Error("zero type should label as unknown")
	}

	for _, et := range []ErrorType{ErrorTypeAuth, ErrorTypeBadPrompt, ErrorTypeParse, ErrorTypeServiceUnavailable} {
		if NewError(et, "x").IsRetryable() {
			t.Errorf("%s should be final", et)
		}
	}
	for _, et := range []ErrorType{ErrorTypeRateLimit, ErrorTypeTransient, ErrorTypeEmptyResponse, ErrorTypeUnknown} {
		if !NewError(et, "x").IsRetryable() {
			t.Errorf("%s should be retried", et)
		}
	}
}

func TestParseErrorKeepsShortExcerpt(t *testing.T) {
	long := strings.Repeat("x", 1000)
	e := NewParseError(errors.New("bad json"), long)
	if !strings.HasPrefix(e.Excerpt, strings.Repeat("x", 400)+"...") || !strings.HasSuffix(e.Excerpt, "[1000 bytes]") {
		t.Errorf("unexpected excerpt %q", e.Excerpt)
	}
	if got := NewParseError(errors.New("bad json"), "{").Excerpt; got != "{" {
		t.Errorf("short content should be kept whole, got %q", got)
	}
}
