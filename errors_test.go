package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserError(t *testing.T) {
	t.Run("error without cause", func(t *testing.T) {
		err := &UserError{Message: "test error"}
		if err.Error() != "test error" {
			t.Errorf("Error() = %q, want %q", err.Error(), "test error")
		}
	})

	t.Run("error with cause", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := &UserError{Message: "test error", Cause: cause}
		expected := "test error: underlying error"
		if err.Error() != expected {
			t.Errorf("Error() = %q, want %q", err.Error(), expected)
		}
	})

	t.Run("unwrap returns cause", func(t *testing.T) {
		cause := errors.New("underlying error")
		err := &UserError{Message: "test error", Cause: cause}
		if err.Unwrap() != cause {
			t.Error("Unwrap() did not return the cause")
		}
	})
}

func TestFormatUserError(t *testing.T) {
	t.Run("formats UserError with suggestion", func(t *testing.T) {
		err := &UserError{
			Message:    "test error",
			Suggestion: "try this fix",
		}
		output := FormatUserError(err)
		if !strings.Contains(output, "test error") {
			t.Error("output should contain error message")
		}
		if !strings.Contains(output, "try this fix") {
			t.Error("output should contain suggestion")
		}
	})

	t.Run("formats generic error with auto-suggestion", func(t *testing.T) {
		err := errors.New("no valid credential sources")
		output := FormatUserError(err)
		if !strings.Contains(output, "no valid credential") {
			t.Error("output should contain error message")
		}
		if !strings.Contains(output, "aws configure") {
			t.Error("output should contain AWS credential suggestion")
		}
	})
}

func TestGetSuggestionForError(t *testing.T) {
	tests := []struct {
		name        string
		errStr      string
		shouldMatch string
	}{
		{
			name:        "rejected key",
			errStr:      `API error (status 401): {"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			shouldMatch: "config set",
		},
		{
			name:        "rate limit status",
			errStr:      "API error (status 429): slow down",
			shouldMatch: "rate-limited",
		},
		{
			name:        "unknown model",
			errStr:      "API error (status 404): model: claude-9 not found",
			shouldMatch: "/models refresh",
		},
		{
			name:        "AWS credentials error",
			errStr:      "no valid credential sources",
			shouldMatch: "aws configure",
		},
		{
			name:        "AWS region error",
			errStr:      "region not specified",
			shouldMatch: "AWS_REGION",
		},
		{
			name:        "access denied",
			errStr:      "Access Denied",
			shouldMatch: "IAM",
		},
		{
			name:        "throttling",
			errStr:      "throttled by service",
			shouldMatch: "rate-limited",
		},
		{
			name:        "timeout",
			errStr:      "context deadline exceeded (timeout)",
			shouldMatch: "timed out",
		},
		{
			name:        "network error",
			errStr:      "dial tcp: lookup api.openai.com: no such host",
			shouldMatch: "network",
		},
		{
			name:        "connection refused",
			errStr:      "connection refused",
			shouldMatch: "network",
		},
		{
			name:        "unknown error",
			errStr:      "some random error",
			shouldMatch: "", // no suggestion
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestion := getSuggestionForError(tt.errStr)
			if tt.shouldMatch == "" {
				if suggestion != "" {
					t.Errorf("expected no suggestion, got %q", suggestion)
				}
			} else {
				if !strings.Contains(strings.ToLower(suggestion), strings.ToLower(tt.shouldMatch)) {
					t.Errorf("suggestion %q should contain %q", suggestion, tt.shouldMatch)
				}
			}
		})
	}
}

func TestSuggestionFor(t *testing.T) {
	if got := SuggestionFor(nil); got != "" {
		t.Errorf("SuggestionFor(nil) = %q", got)
	}
	if got := SuggestionFor(fmt.Errorf("wrapped: %w", context.Canceled)); got != "" {
		t.Errorf("cancellation should carry no suggestion, got %q", got)
	}
	if got := SuggestionFor(&SpawnError{Err: ErrNoShell}); !strings.Contains(got, "PATH") {
		t.Errorf("SuggestionFor(no shell) = %q", got)
	}
	wrapped := fmt.Errorf("outer: %w", ErrMissingAPIKey(ProviderOpenAI, "OPENAI_API_KEY"))
	if got := SuggestionFor(wrapped); !strings.Contains(got, "OPENAI_API_KEY") {
		t.Errorf("SuggestionFor(missing key) = %q", got)
	}
}

func TestErrorConstructors(t *testing.T) {
	t.Run("ErrMissingAPIKey", func(t *testing.T) {
		err := ErrMissingAPIKey(ProviderAnthropic, "ANTHROPIC_API_KEY")
		if !strings.Contains(err.Message, "Claude") {
			t.Errorf("Message = %q, should name the provider", err.Message)
		}
		if !strings.Contains(err.Suggestion, "anthropic.api_key") {
			t.Errorf("Suggestion = %q, should name the config key", err.Suggestion)
		}
	})

	t.Run("ErrAWSConfig", func(t *testing.T) {
		cause := errors.New("config error")
		err := ErrAWSConfig(cause)
		if err.Cause != cause {
			t.Error("should preserve cause")
		}
		if !strings.Contains(err.Suggestion, "aws configure") {
			t.Error("should suggest aws configure")
		}
	})

	t.Run("ErrProviderRequest", func(t *testing.T) {
		cause := errors.New("API error (status 429): too many requests")
		err := ErrProviderRequest("OpenAI", cause)
		if !errors.Is(err, cause) {
			t.Error("should wrap cause")
		}
		if !strings.Contains(err.Suggestion, "rate-limited") {
			t.Errorf("Suggestion = %q", err.Suggestion)
		}
	})

	t.Run("ErrPromptRejected", func(t *testing.T) {
		err := ErrPromptRejected("- Secrets: score=1.00")
		if !strings.Contains(err.Error(), "Secrets") {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}
