package main

import (
	"context"
	"fmt"
	"net/http"
)

const anthropicAPIURL = "https://api.anthropic.com"

// Ensure AnthropicClient implements LLMProvider
var _ LLMProvider = (*AnthropicClient)(nil)

// AnthropicClient implements LLMProvider for the Anthropic Messages API
type AnthropicClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

// AnthropicRequest represents a request to the Anthropic Messages API
type AnthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
}

// AnthropicResponse represents a response from the Anthropic Messages API
type AnthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider creates an AnthropicClient as an LLMProvider
func NewAnthropicProvider(cfg *ProviderConfig) (LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey(ProviderAnthropic, "ANTHROPIC_API_KEY")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &AnthropicClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.baseURL(anthropicAPIURL),
		defaultModel: model,
		httpClient:   cfg.httpClient(),
	}, nil
}

// Name returns the provider name
func (c *AnthropicClient) Name() string {
	return ProviderAnthropic.DisplayName()
}

// DefaultModel returns the default model
func (c *AnthropicClient) DefaultModel() string {
	return c.defaultModel
}

func (c *AnthropicClient) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}
}

// Complete sends a request to the Anthropic API
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	body := AnthropicRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
	}

	var apiResp AnthropicResponse
	if err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/v1/messages", c.headers(), body, &apiResp); err != nil {
		return nil, err
	}

	// Extract text from content blocks
	var text string
	for _, content := range apiResp.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}

	if text == "" {
		return nil, fmt.Errorf("model returned no text content (stop_reason: %s)", apiResp.StopReason)
	}

	return &CompletionResult{
		Text:         text,
		InputTokens:  apiResp.Usage.InputTokens,
		OutputTokens: apiResp.Usage.OutputTokens,
	}, nil
}

// ListModels fetches the model ids available to this key
func (c *AnthropicClient) ListModels(ctx context.Context) ([]string, error) {
	var resp modelListResponse
	if err := doJSON(ctx, c.httpClient, http.MethodGet, c.baseURL+"/v1/models?limit=1000", c.headers(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.sortedIDs(), nil
}
