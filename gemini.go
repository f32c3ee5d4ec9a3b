package main

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Ensure GeminiClient implements LLMProvider
var _ LLMProvider = (*GeminiClient)(nil)

// GeminiClient implements LLMProvider for the Gemini API through the genai SDK
type GeminiClient struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiProvider creates a GeminiClient as an LLMProvider
func NewGeminiProvider(ctx context.Context, cfg *ProviderConfig) (LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey(ProviderGemini, "GEMINI_API_KEY")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.HTTPClient != nil {
		cc.HTTPClient = cfg.HTTPClient
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiClient{client: client, defaultModel: model}, nil
}

// Name returns the provider name
func (c *GeminiClient) Name() string {
	return ProviderGemini.DisplayName()
}

// DefaultModel returns the default model
func (c *GeminiClient) DefaultModel() string {
	return c.defaultModel
}

// Complete sends a generateContent request
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("model returned no text content")
	}

	result := &CompletionResult{Text: text}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// ListModels returns the built-in Gemini model list
func (c *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	return StaticModels(ProviderGemini), nil
}
