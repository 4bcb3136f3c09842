package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"dtplanner/pkg/agent/llmerrors"
)

// ErrNoJSON is returned when a completion contains no JSON document.
var ErrNoJSON = errors.New("no JSON document found in completion")

// CompleteJSON runs a JSON-format completion and decodes the result into out.
// Transport errors are returned as-is; decoding failures come back as
// llmerrors.ErrorTypeParse so callers can substitute a fallback record.
func CompleteJSON(ctx context.Context, client LLMClient, req CompletionRequest, out any) error {
	req.Format = FormatJSON
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return err
	}
	if err := DecodeJSON(resp.Content, out); err != nil {
		return llmerrors.NewParseError(err, resp.Content)
	}
	return nil
}

// DecodeJSON extracts the first JSON object or array from content and unmarshals it.
// Providers without a native JSON mode often wrap the document in prose or a
// markdown fence; both are tolerated.
func DecodeJSON(content string, out any) error {
	doc := ExtractJSON(content)
	if doc == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}
	return nil
}

// ExtractJSON returns the outermost JSON object or array found in content, or "".
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)

	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	open := s[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
