// Package classify maps raw provider and oracle failures to a category
// plus retry/reformulate hints. Classification is pure: no network, no
// clock, no state.
package classify

import (
	"fmt"
	"net/http"
	"strings"
)

// Category is the failure taxonomy for external calls.
type Category string

const (
	Auth        Category = "auth"
	RateLimit   Category = "rate_limit"
	Validation  Category = "validation"
	NotFound    Category = "not_found"
	ServerError Category = "server_error"
	Timeout     Category = "timeout"
	Network     Category = "network"
	Unknown     Category = "unknown"
)

// APIError is a classified external failure.
type APIError struct {
	Category     Category
	Status       int
	Message      string
	Retryable    bool
	Reformulable bool
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (http %d): %s", e.Category, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Substring pattern lists used when no HTTP status is available.
// Matching is case-insensitive.
var (
	timeoutPatterns   = []string{"timeout", "timed out", "deadline exceeded", "context deadline"}
	rateLimitPatterns = []string{"rate limit", "too many requests", "quota exceeded", "throttle"}
	authPatterns      = []string{"unauthorized", "api key", "forbidden", "invalid key", "authentication"}
	networkPatterns   = []string{"connection refused", "connection reset", "no such host", "network is unreachable", "eof"}
)

// Classify maps a raw failure to an APIError. A present HTTP status takes
// precedence over message matching; with no status the message is matched
// against the pattern lists; anything unmatched is Unknown and
// conservative (neither retryable nor reformulable).
func Classify(err error, status int) *APIError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	if status > 0 {
		return classifyStatus(status, msg)
	}

	lower := strings.ToLower(msg)
	switch {
	case matchAny(lower, timeoutPatterns):
		return &APIError{Category: Timeout, Message: msg, Retryable: true}
	case matchAny(lower, rateLimitPatterns):
		return &APIError{Category: RateLimit, Message: msg, Retryable: true}
	case matchAny(lower, authPatterns):
		return &APIError{Category: Auth, Message: msg}
	case matchAny(lower, networkPatterns):
		return &APIError{Category: Network, Message: msg, Retryable: true}
	}
	return &APIError{Category: Unknown, Message: msg}
}

func classifyStatus(status int, msg string) *APIError {
	e := &APIError{Status: status, Message: msg}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Category = Auth
	case http.StatusTooManyRequests:
		e.Category = RateLimit
		e.Retryable = true
	case http.StatusNotFound:
		e.Category = NotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.Category = Validation
		e.Reformulable = true
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Category = ServerError
		e.Retryable = true
	default:
		e.Category = Unknown
	}
	return e
}

func matchAny(msg string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
