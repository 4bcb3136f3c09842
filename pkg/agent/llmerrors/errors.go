// Package llmerrors classifies model provider failures so the retry, circuit
// and pipeline layers can decide what to do with them.
package llmerrors

import (
	"errors"
	"fmt"
)

// ErrorType names a failure class. The value doubles as the metrics label.
type ErrorType string

const (
	ErrorTypeRateLimit     ErrorType = "rate_limit"     // 429, quota exceeded
	ErrorTypeTransient     ErrorType = "transient"      // 5xx, EOF, reset, timeout
	ErrorTypeEmptyResponse ErrorType = "empty_response" // 200 with no content
	ErrorTypeUnknown       ErrorType = "unknown"

	// The classes below are final at the client layer.

	ErrorTypeAuth      ErrorType = "auth"       // 401/403, bad API key
	ErrorTypeBadPrompt ErrorType = "bad_prompt" // too long, malformed, policy
	// ErrorTypeParse means the model answered but not in the requested structure.
	// Callers substitute a fallback record.
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeServiceUnavailable wraps the last error once client retries ran out.
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"
)

var final = map[ErrorType]bool{
	ErrorTypeAuth:               true,
	ErrorTypeBadPrompt:          true,
	ErrorTypeParse:              true,
	ErrorTypeServiceUnavailable: true,
}

// String returns the label form of the type.
func (et ErrorType) String() string {
	if et == "" {
		return string(ErrorTypeUnknown)
	}
	return string(et)
}

// Error is a classified provider failure.
type Error struct {
	Err        error
	Type       ErrorType
	Message    string
	Excerpt    string // start of the offending completion, parse errors only
	StatusCode int
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("LLM error (%s): %s", e.Type, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("LLM error (%s): %v", e.Type, e.Err)
	default:
		return fmt.Sprintf("LLM error (%s): status %d", e.Type, e.StatusCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the client retry layer should try again.
// Unlisted types are retried.
func (e *Error) IsRetryable() bool {
	return !final[e.Type]
}

// Is reports whether err wraps an *Error of the given type.
func Is(err error, errorType ErrorType) bool {
	return TypeOf(err) == errorType
}

// TypeOf returns the type of the *Error wrapped by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) && llmErr.Type != "" {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// IsServiceUnavailable reports whether client retries were exhausted.
func IsServiceUnavailable(err error) bool {
	return Is(err, ErrorTypeServiceUnavailable)
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// NewParseError reports a completion that did not decode into the requested structure.
func NewParseError(cause error, content string) *Error {
	return &Error{
		Type:    ErrorTypeParse,
		Err:     cause,
		Message: fmt.Sprintf("structured output did not parse: %v", cause),
		Excerpt: excerpt(content, 400),
	}
}

func NewServiceUnavailableError(cause error, attempts int) *Error {
	return &Error{
		Type:    ErrorTypeServiceUnavailable,
		Err:     cause,
		Message: fmt.Sprintf("service unavailable after %d retry attempts", attempts),
	}
}

func excerpt(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return fmt.Sprintf("%s...[%d bytes]", s[:maxBytes], len(s))
}
