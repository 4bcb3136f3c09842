package testkit

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
)

// SearchItem is a canned web search hit served by the mock search servers.
type SearchItem struct {
	Title   string
	URL     string
	Snippet string
}

// MockAnthropicServer creates an httptest server that emulates the Anthropic
// messages endpoint and always answers with reply.
func MockAnthropicServer(reply string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var request struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		response := map[string]any{
			"id":    "msg_mock_12345",
			"type":  "message",
			"role":  "assistant",
			"model": request.Model,
			"content": []map[string]any{
				{"type": "text", "text": reply},
			},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage": map[string]any{
				"input_tokens":  100,
				"output_tokens": 200,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
}

// MockOpenAIServer creates an httptest server that emulates the OpenAI chat
// completions endpoint and always answers with reply.
func MockOpenAIServer(reply string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var request struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		response := map[string]any{
			"id":      "chatcmpl-mock12345",
			"object":  "chat.completion",
			"created": 1699999999,
			"model":   request.Model,
			"choices": []map[string]any{
				{
					"index": 0,
					"message": map[string]any{
						"role":    "assistant",
						"content": reply,
					},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     50,
				"completion_tokens": 100,
				"total_tokens":      150,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
}

// MockGoogleSearchServer emulates the Custom Search JSON API.
func MockGoogleSearchServer(items []SearchItem) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" || r.URL.Query().Get("key") == "" {
			http.Error(w, `{"error":{"code":400,"message":"missing q or key"}}`, http.StatusBadRequest)
			return
		}
		out := make([]map[string]string, 0, len(items))
		for _, it := range items {
			out = append(out, map[string]string{"title": it.Title, "link": it.URL, "snippet": it.Snippet})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": out})
	}))
}

// MockDuckDuckGoServer emulates the DuckDuckGo HTML results page.
func MockDuckDuckGoServer(items []SearchItem) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("q") == "" {
			http.Error(w, "missing q", http.StatusBadRequest)
			return
		}
		var b strings.Builder
		b.WriteString("<html><body>")
		for _, it := range items {
			fmt.Fprintf(&b, `<div class="result"><a class="result__a" href="%s">%s</a><a class="result__snippet" href="%s">%s</a></div>`,
				html.EscapeString(it.URL), html.EscapeString(it.Title), html.EscapeString(it.URL), html.EscapeString(it.Snippet))
		}
		b.WriteString("</body></html>")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(b.String()))
	}))
}
