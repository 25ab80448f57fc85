package assistant

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIBackend answers through the Gemini API.
type GenAIBackend struct {
	models contentGenerator
	model  string
}

// NewGenAIBackend creates a Gemini-backed fallback.
func NewGenAIBackend(ctx context.Context, apiKey, model string) (*GenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIBackend{models: client.Models, model: model}, nil
}

// Name implements Backend.
func (b *GenAIBackend) Name() string { return "gemini" }

// Generate implements Backend.
func (b *GenAIBackend) Generate(ctx context.Context, message string) (string, error) {
	resp, err := b.models.GenerateContent(ctx, b.model, genai.Text(message), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrBackendEmpty
	}
	return text, nil
}
