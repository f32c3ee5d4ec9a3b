package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be displayed to the user with helpful context
type UserError struct {
	Message    string
	Cause      error
	Suggestion string
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// FormatUserError formats an error for user display with colors and suggestions
func FormatUserError(err error) string {
	var sb strings.Builder

	var userErr *UserError
	if errors.As(err, &userErr) {
		sb.WriteString(fmt.Sprintf("\033[91mError:\033[0m %s\n", userErr.Message))
		if userErr.Cause != nil {
			sb.WriteString(fmt.Sprintf("       Cause: %v\n", userErr.Cause))
		}
	} else {
		sb.WriteString(fmt.Sprintf("\033[91mError:\033[0m %s\n", err.Error()))
	}

	if suggestion := SuggestionFor(err); suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n\033[93mSuggestion:\033[0m %s\n", suggestion))
	}

	return sb.String()
}

// SuggestionFor returns the attached suggestion of a UserError, or one
// derived from the error text
func SuggestionFor(err error) string {
	if err == nil {
		return ""
	}
	var userErr *UserError
	if errors.As(err, &userErr) && userErr.Suggestion != "" {
		return userErr.Suggestion
	}
	if errors.Is(err, context.Canceled) {
		return ""
	}
	if errors.Is(err, ErrNoShell) {
		return "No shell could be started. Make sure sh (or pwsh/cmd on Windows) is on your PATH."
	}
	return getSuggestionForError(err.Error())
}

// getSuggestionForError returns a helpful suggestion based on error content
func getSuggestionForError(errStr string) string {
	errLower := strings.ToLower(errStr)

	// Provider HTTP status codes
	if strings.Contains(errLower, "status 401") || strings.Contains(errLower, "invalid x-api-key") ||
		strings.Contains(errLower, "incorrect api key") || strings.Contains(errLower, "api key not valid") {
		return "The API key was rejected. Check it with 'llmterm config show' and update it with 'llmterm config set <provider>.api_key <key>'."
	}

	if strings.Contains(errLower, "status 403") {
		return "The key is valid but not allowed to use this model. Pick another with /model or check your account's access."
	}

	if strings.Contains(errLower, "status 429") || strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "throttl") {
		return "You're being rate-limited. Wait a moment and try again."
	}

	if strings.Contains(errLower, "status 529") || strings.Contains(errLower, "overloaded") {
		return "The provider is overloaded. Try again shortly or switch providers with /provider."
	}

	// AWS/Bedrock related errors
	if strings.Contains(errLower, "no valid credential") ||
		strings.Contains(errLower, "unable to sign request") ||
		strings.Contains(errLower, "security token") {
		return "Check your AWS credentials. Run 'aws configure' or set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables."
	}

	if strings.Contains(errLower, "access denied") ||
		strings.Contains(errLower, "not authorized") {
		return "Your AWS credentials may not have permission to access Bedrock. Check IAM policies for bedrock:InvokeModel permission."
	}

	if strings.Contains(errLower, "model") && strings.Contains(errLower, "not found") ||
		strings.Contains(errLower, "model_not_found") {
		return "The model is not available to this key. Run /models refresh and pick one with /model."
	}

	if strings.Contains(errLower, "region") {
		return "Set the region with 'llmterm config set bedrock.region us-east-1' or the AWS_REGION environment variable."
	}

	if strings.Contains(errLower, "timeout") || strings.Contains(errLower, "deadline exceeded") {
		return "The operation timed out. This might be due to slow network. Try again or check your connection."
	}

	if strings.Contains(errLower, "connection refused") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "network") {
		return "Check your network connection. You may be offline or behind a firewall."
	}

	return ""
}

// Common error constructors

// ErrMissingAPIKey creates an error for a provider without a configured key
func ErrMissingAPIKey(provider ProviderType, envVar string) *UserError {
	return &UserError{
		Message: fmt.Sprintf("%s API key required", provider.DisplayName()),
		Suggestion: fmt.Sprintf("Set %s, or run 'llmterm config set %s.api_key <key>'.",
			envVar, provider),
	}
}

// ErrProviderRequest creates an error for a failed completion call
func ErrProviderRequest(provider string, cause error) *UserError {
	return &UserError{
		Message:    fmt.Sprintf("%s request failed", provider),
		Cause:      cause,
		Suggestion: getSuggestionForError(cause.Error()),
	}
}

// ErrAWSConfig creates an error for AWS configuration issues
func ErrAWSConfig(cause error) *UserError {
	return &UserError{
		Message: "Failed to initialize AWS configuration",
		Cause:   cause,
		Suggestion: `Check your AWS credentials:
       1. Run 'aws configure' to set up credentials
       2. Or set environment variables:
          export AWS_ACCESS_KEY_ID=your_key
          export AWS_SECRET_ACCESS_KEY=your_secret
          export AWS_REGION=us-east-1`,
	}
}

// ErrBedrockInvoke creates an error for Bedrock API issues
func ErrBedrockInvoke(cause error) *UserError {
	return &UserError{
		Message: "Failed to call Bedrock API",
		Cause:   cause,
		Suggestion: `Possible issues:
       1. Check AWS credentials and region
       2. Verify Bedrock access is enabled in your AWS account
       3. Check IAM permissions for bedrock:InvokeModel
       4. Try a different model with /model`,
	}
}

// ErrPromptRejected creates an error for a query blocked by the prompt scanner
func ErrPromptRejected(issues string) *UserError {
	return &UserError{
		Message:    "Query blocked by prompt scanner",
		Cause:      errors.New(issues),
		Suggestion: "Remove secrets or injected instructions from the query, or unset guard.url to disable scanning.",
	}
}
