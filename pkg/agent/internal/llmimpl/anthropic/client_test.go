package anthropic

import (
	"strings"
	"testing"

	"dtplanner/pkg/agent/llm"
)

// TestEnsureAlternation tests the message alternation logic.
func TestEnsureAlternation(t *testing.T) {
	tests := []struct {
		name         string
		input        []llm.CompletionMessage
		expectSystem string
		expectRoles  []llm.CompletionRole
		errContains  string
	}{
		{
			name:        "empty messages",
			input:       []llm.CompletionMessage{},
			errContains: "message list cannot be empty",
		},
		{
			name: "system messages concatenated",
			input: []llm.CompletionMessage{
				llm.NewSystemMessage("You are helpful"),
				llm.NewSystemMessage("And concise"),
				llm.NewUserMessage("Hello"),
			},
			expectSystem: "You are helpful\n\nAnd concise",
			expectRoles:  []llm.CompletionRole{llm.RoleUser},
		},
		{
			name: "consecutive user messages merged",
			input: []llm.CompletionMessage{
				llm.NewUserMessage("Hello"),
				llm.NewUserMessage("Anyone there?"),
			},
			expectRoles: []llm.CompletionRole{llm.RoleUser},
		},
		{
			name: "assistant opener gets placeholder",
			input: []llm.CompletionMessage{
				llm.NewSystemMessage("You are the consultant"),
				llm.NewAssistantMessage("I'm here to discuss digital transformation strategies."),
				llm.NewUserMessage("What should we do first?"),
			},
			expectSystem: "You are the consultant",
			expectRoles:  []llm.CompletionRole{llm.RoleUser, llm.RoleAssistant, llm.RoleUser},
		},
		{
			name: "ends with assistant returns error",
			input: []llm.CompletionMessage{
				llm.NewUserMessage("Hello"),
				llm.NewAssistantMessage("Hi"),
			},
			errContains: "last message must be user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, msgs, err := ensureAlternation(tt.input)
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
			if len(msgs) != len(tt.expectRoles) {
				t.Fatalf("got %d messages, want %d", len(msgs), len(tt.expectRoles))
			}
			for i, role := range tt.expectRoles {
				if msgs[i].Role != role {
					t.Errorf("msgs[%d].Role = %s, want %s", i, msgs[i].Role, role)
				}
			}
		})
	}
}

func TestEnsureAlternationMergesContent(t *testing.T) {
	_, msgs, err := ensureAlternation([]llm.CompletionMessage{
		llm.NewUserMessage("one"),
		llm.NewUserMessage("two"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if msgs[0].Content != "one\n\ntwo" {
		t.Errorf("merged content = %q", msgs[0].Content)
	}
}
