package classify

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify_StatusTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status       int
		category     Category
		retryable    bool
		reformulable bool
	}{
		{401, Auth, false, false},
		{403, Auth, false, false},
		{429, RateLimit, true, false},
		{404, NotFound, false, false},
		{400, Validation, false, true},
		{422, Validation, false, true},
		{500, ServerError, true, false},
		{502, ServerError, true, false},
		{503, ServerError, true, false},
		{504, ServerError, true, false},
		{418, Unknown, false, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			t.Parallel()
			got := Classify(errors.New("boom"), tc.status)
			if got.Category != tc.category {
				t.Fatalf("Category = %q, want %q", got.Category, tc.category)
			}
			if got.Retryable != tc.retryable {
				t.Fatalf("Retryable = %v, want %v", got.Retryable, tc.retryable)
			}
			if got.Reformulable != tc.reformulable {
				t.Fatalf("Reformulable = %v, want %v", got.Reformulable, tc.reformulable)
			}
			if got.Status != tc.status {
				t.Fatalf("Status = %d, want %d", got.Status, tc.status)
			}
		})
	}
}

func TestClassify_MessagePatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		msg       string
		category  Category
		retryable bool
	}{
		{"timeout", "request Timed Out after 15s", Timeout, true},
		{"deadline", "context deadline exceeded", Timeout, true},
		{"rate_limit", "quota exceeded for project", RateLimit, true},
		{"throttle", "request throttled", RateLimit, true},
		{"auth", "invalid API key provided", Auth, false},
		{"network", "dial tcp: connection refused", Network, true},
		{"no_such_host", "lookup api.example.com: no such host", Network, true},
		{"unknown", "something inexplicable happened", Unknown, false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(errors.New(tc.msg), 0)
			if got.Category != tc.category {
				t.Fatalf("Category = %q, want %q", got.Category, tc.category)
			}
			if got.Retryable != tc.retryable {
				t.Fatalf("Retryable = %v, want %v", got.Retryable, tc.retryable)
			}
		})
	}
}

func TestClassify_StatusTakesPrecedenceOverMessage(t *testing.T) {
	t.Parallel()

	// Message says timeout but the 400 status wins.
	got := Classify(errors.New("timed out"), 400)
	if got.Category != Validation {
		t.Fatalf("Category = %q, want %q", got.Category, Validation)
	}
	if !got.Reformulable {
		t.Fatal("Reformulable = false, want true")
	}
}

func TestClassify_UnknownIsConservative(t *testing.T) {
	t.Parallel()

	got := Classify(errors.New("weird failure"), 0)
	if got.Category != Unknown {
		t.Fatalf("Category = %q, want %q", got.Category, Unknown)
	}
	if got.Retryable || got.Reformulable {
		t.Fatal("unknown errors must be neither retryable nor reformulable")
	}
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	withStatus := &APIError{Category: RateLimit, Status: 429, Message: "slow down"}
	if got := withStatus.Error(); got != "rate_limit (http 429): slow down" {
		t.Fatalf("Error() = %q", got)
	}
	withoutStatus := &APIError{Category: Timeout, Message: "timed out"}
	if got := withoutStatus.Error(); got != "timeout: timed out" {
		t.Fatalf("Error() = %q", got)
	}
}
