package llmerrors

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// statusPattern finds an HTTP status in SDK error strings such as
// `POST "https://...": 429 Too Many Requests` or "status code: 503".
var statusPattern = regexp.MustCompile(`(?i)(?:status(?: code)?:?\s*|http\s+|":\s*)([45]\d\d)\b`)

// Classify maps a provider SDK error to a structured error. When statusCode is
// zero it is recovered from the error text if possible.
func Classify(err error, statusCode int) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewErrorWithCause(ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewErrorWithCause(ErrorTypeTransient, err, "request canceled")
	}

	errStr := err.Error()
	if statusCode == 0 {
		statusCode = ExtractStatusCode(errStr)
	}

	if e := fromStatus(err, statusCode); e != nil {
		return e
	}

	lower := strings.ToLower(errStr)
	switch {
	case containsAny(lower, "timeout", "connection", "network", "temporary", "eof", "reset"):
		return NewErrorWithCause(ErrorTypeTransient, err, "network or connection error")
	case containsAny(lower, "rate", "quota", "limit"):
		return NewErrorWithCause(ErrorTypeRateLimit, err, "rate limiting detected")
	case containsAny(lower, "unauthorized", "api key", "authentication"):
		return NewErrorWithCause(ErrorTypeAuth, err, "authentication error")
	case containsAny(lower, "invalid", "malformed", "too large", "context length"):
		return NewErrorWithCause(ErrorTypeBadPrompt, err, "prompt or request error")
	}

	return NewErrorWithCause(ErrorTypeUnknown, err, "unclassified error")
}

func fromStatus(err error, statusCode int) *Error {
	var e *Error
	switch {
	case statusCode == 401:
		e = &Error{Type: ErrorTypeAuth, StatusCode: statusCode, Message: "authentication failed - check API key"}
	case statusCode == 403:
		e = &Error{Type: ErrorTypeAuth, StatusCode: statusCode, Message: "permission denied - check API access"}
	case statusCode == 429:
		e = &Error{Type: ErrorTypeRateLimit, StatusCode: statusCode, Message: "rate limit exceeded"}
	case statusCode == 400 || statusCode == 404 || statusCode == 413 || statusCode == 422:
		e = &Error{Type: ErrorTypeBadPrompt, StatusCode: statusCode, Message: "bad request - check prompt format and parameters"}
	case statusCode == 408 || statusCode >= 500:
		e = &Error{Type: ErrorTypeTransient, StatusCode: statusCode, Message: "server error"}
	default:
		return nil
	}
	e.Err = err
	return e
}

// ExtractStatusCode attempts to extract an HTTP status code from an error string.
func ExtractStatusCode(errStr string) int {
	m := statusPattern.FindStringSubmatch(errStr)
	if m == nil {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
