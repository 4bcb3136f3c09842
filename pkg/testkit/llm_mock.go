package testkit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"dtplanner/pkg/agent/llm"
)

// ReplyFunc computes a reply for a matched request.
type ReplyFunc func(req llm.CompletionRequest) (string, error)

type rule struct {
	match     string
	reply     ReplyFunc
	remaining int // <0 = unlimited
}

// MockLLMClient answers completions from an ordered list of rules. A rule
// matches when its substring occurs in any message of the request; the first
// matching rule with uses left wins. Safe for concurrent use.
type MockLLMClient struct {
	mu       sync.Mutex
	model    string
	rules    []*rule
	fallback ReplyFunc
	calls    []llm.CompletionRequest
}

// NewMockLLMClient creates a mock that fails every request until rules are added.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{model: model}
}

// On replies with a fixed string whenever match is found.
func (m *MockLLMClient) On(match, reply string) *MockLLMClient {
	return m.OnFunc(match, func(llm.CompletionRequest) (string, error) { return reply, nil })
}

// OnFunc replies using fn whenever match is found.
func (m *MockLLMClient) OnFunc(match string, fn ReplyFunc) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, &rule{match: match, reply: fn, remaining: -1})
	return m
}

// OnError fails the next times matching requests with err. times <= 0 means always.
func (m *MockLLMClient) OnError(match string, err error, times int) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	if times <= 0 {
		times = -1
	}
	m.rules = append(m.rules, &rule{
		match:     match,
		reply:     func(llm.CompletionRequest) (string, error) { return "", err },
		remaining: times,
	})
	return m
}

// Default sets the reply for requests no rule matches.
func (m *MockLLMClient) Default(reply string) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = func(llm.CompletionRequest) (string, error) { return reply, nil }
	return m
}

// Complete implements llm.LLMClient.
//
//nolint:gocritic // CompletionRequest passed by value to match interface
func (m *MockLLMClient) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.CompletionResponse{}, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn := m.fallback
	for _, r := range m.rules {
		if r.remaining == 0 || !requestContains(req, r.match) {
			continue
		}
		if r.remaining > 0 {
			r.remaining--
		}
		fn = r.reply
		break
	}
	m.mu.Unlock()

	if fn == nil {
		return llm.CompletionResponse{}, fmt.Errorf("mock client: no rule matches request")
	}
	content, err := fn(req)
	if err != nil {
		return llm.CompletionResponse{}, err
	}
	return llm.CompletionResponse{Content: content, StopReason: "end_turn"}, nil
}

// GetModelName implements llm.LLMClient.
func (m *MockLLMClient) GetModelName() string {
	return m.model
}

// Calls returns a copy of every request received so far.
func (m *MockLLMClient) Calls() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.CompletionRequest(nil), m.calls...)
}

// CallCount returns how many received requests contain match.
func (m *MockLLMClient) CallCount(match string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.calls {
		if requestContains(m.calls[i], match) {
			n++
		}
	}
	return n
}

func requestContains(req llm.CompletionRequest, match string) bool {
	if match == "" {
		return true
	}
	for i := range req.Messages {
		if strings.Contains(req.Messages[i].Content, match) {
			return true
		}
	}
	return false
}

// LastUserMessage returns the final user message of a request, or "".
func LastUserMessage(req llm.CompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
