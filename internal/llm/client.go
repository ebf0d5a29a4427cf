// Package llm provides the Gemini client and the two-phase analyzer
// executor: a free-text analysis pass followed by schema-constrained
// extraction.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ModelTier represents the capability level requested for a call.
type ModelTier string

const (
	// TierLite handles extraction and classification.
	TierLite ModelTier = "lite"
	// TierStandard handles most analysis passes.
	TierStandard ModelTier = "standard"
	// TierAdvanced handles synthesis across the whole foundation.
	TierAdvanced ModelTier = "advanced"
)

// Models maps tiers to Gemini model names.
type Models map[ModelTier]string

// DefaultModels returns the default tier mapping.
func DefaultModels() Models {
	return Models{
		TierLite:     "gemini-2.5-flash-lite",
		TierStandard: "gemini-2.5-flash",
		TierAdvanced: "gemini-2.5-pro",
	}
}

// Model resolves a tier with a standard→lite fallback chain.
func (m Models) Model(tier ModelTier) string {
	if name, ok := m[tier]; ok {
		return name
	}
	if name, ok := m[TierStandard]; ok {
		return name
	}
	return m[TierLite]
}

// Client is the abstraction over the LLM provider.
type Client interface {
	// GenerateText runs a free-text generation.
	GenerateText(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// GenerateJSON runs a generation constrained to JSON output.
	GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error)
	// Close releases provider resources.
	Close() error
}

// GeminiClient implements Client for Google Gemini.
type GeminiClient struct {
	client *genai.Client
	models Models
}

// NewGeminiClient creates a Gemini-backed client.
func NewGeminiClient(ctx context.Context, apiKey string, models Models) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if models == nil {
		models = DefaultModels()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, models: models}, nil
}

// GenerateText runs a free-text generation at the given tier.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model := c.client.GenerativeModel(c.models.Model(tier))
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

// GenerateJSON runs a JSON-constrained generation at the given tier.
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	model := c.client.GenerativeModel(c.models.Model(tier))
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	return StripJSONFences(text), nil
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// StripJSONFences removes markdown code fences some models wrap around JSON.
func StripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
