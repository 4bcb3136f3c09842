package llm

import (
	"context"
	"testing"

	"dtplanner/pkg/agent/llmerrors"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"prose around", `Sure! Here it is: {"a":{"b":2}} hope that helps`, `{"a":{"b":2}}`},
		{"fenced", "```json\n{\"queries\":[\"x\"]}\n```", `{"queries":["x"]}`},
		{"array", `[1,2,3] trailing`, `[1,2,3]`},
		{"brace inside string", `{"s":"a}b"}`, `{"s":"a}b"}`},
		{"escaped quote", `{"s":"a\"}"}`, `{"s":"a\"}"}`},
		{"none", `no json here`, ``},
		{"unterminated", `{"a":`, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.content); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompleteJSON(t *testing.T) {
	var seen CompletionRequest
	client := &mockLLMClient{
		completeFunc: func(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
			seen = req
			return CompletionResponse{Content: "```json\n{\"queries\":[\"q1\",\"q2\"]}\n```"}, nil
		},
	}

	var out struct {
		Queries []string `json:"queries"`
	}
	if err := CompleteJSON(context.Background(), client, NewCompletionRequest(nil), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Format != FormatJSON {
		t.Errorf("expected JSON format to be requested, got %q", seen.Format)
	}
	if len(out.Queries) != 2 || out.Queries[1] != "q2" {
		t.Errorf("unexpected decode result: %#v", out)
	}
}

func TestCompleteJSONParseFailure(t *testing.T) {
	client := &mockLLMClient{
		completeFunc: func(_ context.Context, _ CompletionRequest) (CompletionResponse, error) {
			return CompletionResponse{Content: "I cannot answer that"}, nil
		},
	}

	var out map[string]any
	err := CompleteJSON(context.Background(), client, NewCompletionRequest(nil), &out)
	if !llmerrors.Is(err, llmerrors.ErrorTypeParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
