package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Ensure BedrockClient implements LLMProvider
var _ LLMProvider = (*BedrockClient)(nil)

// bedrockInvoker is the part of the Bedrock runtime client we call
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient wraps AWS Bedrock runtime for Claude model invocation
type BedrockClient struct {
	client       bedrockInvoker
	defaultModel string
}

// ClaudeRequest represents the request body for Claude on Bedrock
type ClaudeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	Messages         []Message `json:"messages"`
	System           string    `json:"system,omitempty"`
}

// ClaudeResponse represents the response from Claude on Bedrock
type ClaudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockProvider creates a Bedrock client with credentials from the
// standard AWS chain
func NewBedrockProvider(ctx context.Context, cfg *ProviderConfig) (LLMProvider, error) {
	region := cfg.Region
	if region == "" {
		region = getEnvOrDefault("AWS_REGION", "us-east-1")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, ErrAWSConfig(err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultBedrockModel
	}

	return &BedrockClient{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: model,
	}, nil
}

// Name returns the provider name
func (b *BedrockClient) Name() string {
	return ProviderBedrock.DisplayName()
}

// DefaultModel returns the configured default model ID
func (b *BedrockClient) DefaultModel() string {
	return b.defaultModel
}

// Complete invokes a Claude model on Bedrock
func (b *BedrockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = b.defaultModel
	}

	request := ClaudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		Messages:         []Message{{Role: "user", Content: req.Prompt}},
		System:           req.System,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        requestBody,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, ErrBedrockInvoke(err)
	}

	var response ClaudeResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var text string
	for _, content := range response.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("model returned no text content (stop_reason: %s)", response.StopReason)
	}

	return &CompletionResult{
		Text:         text,
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
	}, nil
}

// ListModels returns the built-in list of Claude model ids on Bedrock
func (b *BedrockClient) ListModels(ctx context.Context) ([]string, error) {
	return StaticModels(ProviderBedrock), nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
