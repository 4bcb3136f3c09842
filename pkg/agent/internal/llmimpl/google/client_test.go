package google

import (
	"strings"
	"testing"

	"google.golang.org/genai"

	"dtplanner/pkg/agent/llm"
)

// TestGetModelName tests model name retrieval.
func TestGetModelName(t *testing.T) {
	client := NewGeminiClientWithModel("test-key", "gemini-2.5-flash")

	if got := client.GetModelName(); got != "gemini-2.5-flash" {
		t.Errorf("expected model %q, got %q", "gemini-2.5-flash", got)
	}
}

// TestConvertMessagesToGemini tests message conversion logic.
func TestConvertMessagesToGemini(t *testing.T) {
	tests := []struct {
		name             string
		messages         []llm.CompletionMessage
		expectSystem     string
		expectRoles      []string
		errContains      string
	}{
		{
			name:        "empty messages",
			messages:    []llm.CompletionMessage{},
			errContains: "message list cannot be empty",
		},
		{
			name: "system message extracted",
			messages: []llm.CompletionMessage{
				llm.NewSystemMessage("You are helpful"),
				llm.NewUserMessage("Hello"),
			},
			expectSystem: "You are helpful",
			expectRoles:  []string{genai.RoleUser},
		},
		{
			name: "assistant becomes model",
			messages: []llm.CompletionMessage{
				llm.NewAssistantMessage("Welcome"),
				llm.NewUserMessage("Thanks"),
			},
			expectRoles: []string{genai.RoleModel, genai.RoleUser},
		},
		{
			name: "only system",
			messages: []llm.CompletionMessage{
				llm.NewSystemMessage("x"),
			},
			errContains: "at least one non-system message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents, system, err := convertMessagesToGemini(tt.messages)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("err = %v, want containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if system != tt.expectSystem {
				t.Errorf("system = %q, want %q", system, tt.expectSystem)
			}
			if len(contents) != len(tt.expectRoles) {
				t.Fatalf("got %d contents, want %d", len(contents), len(tt.expectRoles))
			}
			for i, role := range tt.expectRoles {
				if contents[i].Role != role {
					t.Errorf("contents[%d].Role = %q, want %q", i, contents[i].Role, role)
				}
			}
		})
	}
}

func TestGetStopReason(t *testing.T) {
	if got := getStopReason(nil); got != "unknown" {
		t.Errorf("nil result = %q", got)
	}
	res := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}}}
	if got := getStopReason(res); got != string(genai.FinishReasonStop) {
		t.Errorf("stop reason = %q", got)
	}
}
