package validation

import (
	"context"
	"testing"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/agent/llmerrors"
)

type scripted struct {
	replies []string
	reqs    []llm.CompletionRequest
}

func (s *scripted) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	s.reqs = append(s.reqs, req)
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return llm.CompletionResponse{Content: reply}, nil
}

func (s *scripted) GetModelName() string { return "scripted" }

func TestEmptyResponseRetriesWithGuidance(t *testing.T) {
	base := &scripted{replies: []string{"   ", "hello"}}
	client := llm.Chain(base, NewEmptyResponseValidator().Middleware())

	resp, err := client.Complete(context.Background(), llm.NewCompletionRequest([]llm.CompletionMessage{llm.NewUserMessage("hi")}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q, want hello", resp.Content)
	}
	if len(base.reqs) != 2 {
		t.Fatalf("calls = %d, want 2", len(base.reqs))
	}
	second := base.reqs[1].Messages
	if last := second[len(second)-1]; last.Content != textGuidance {
		t.Errorf("guidance = %q", last.Content)
	}
	if len(base.reqs[0].Messages) != 1 {
		t.Error("original request was mutated")
	}
}

func TestJSONWithoutDocumentIsEmpty(t *testing.T) {
	base := &scripted{replies: []string{"Sure, here you go", "no json again"}}
	client := llm.Chain(base, NewEmptyResponseValidator().Middleware())

	_, err := client.Complete(context.Background(), llm.NewJSONRequest([]llm.CompletionMessage{llm.NewUserMessage("hi")}))
	if !llmerrors.Is(err, llmerrors.ErrorTypeEmptyResponse) {
		t.Fatalf("err = %v, want empty response", err)
	}
	if got := base.reqs[1].Messages[1].Content; got != jsonGuidance {
		t.Errorf("guidance = %q", got)
	}
}

func TestNonEmptyPassesThrough(t *testing.T) {
	base := &scripted{replies: []string{`{"ok":true}`}}
	client := llm.Chain(base, NewEmptyResponseValidator().Middleware())

	resp, err := client.Complete(context.Background(), llm.NewJSONRequest(nil))
	if err != nil || resp.Content != `{"ok":true}` {
		t.Errorf("got %q, %v", resp.Content, err)
	}
	if len(base.reqs) != 1 {
		t.Errorf("calls = %d, want 1", len(base.reqs))
	}
}
