package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
	"thematic/internal/domain"
	"thematic/internal/port"
)

var _ port.CompletionProvider = (*GeminiClient)(nil)

const defaultGeminiModel = "gemini-2.5-flash"

// generator is the subset of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient implements port.CompletionProvider for the Google Gemini API.
type GeminiClient struct {
	models      generator
	model       string
	temperature float32
	maxTokens   int32
}

// NewGeminiClient creates a client with the given API key.
func NewGeminiClient(ctx context.Context, apiKey string, opts OpenAIOptions) (*GeminiClient, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return newGeminiClient(gc.Models, opts), nil
}

func newGeminiClient(models generator, opts OpenAIOptions) *GeminiClient {
	model := opts.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		models:      models,
		model:       model,
		temperature: float32(opts.Temperature),
		maxTokens:   int32(opts.MaxTokens),
	}
}

func (c *GeminiClient) Complete(ctx context.Context, req port.CompletionRequest) (port.Completion, error) {
	temp := c.temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if c.maxTokens > 0 {
		config.MaxOutputTokens = c.maxTokens
	}
	if req.SystemMessage != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemMessage}},
		}
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.UserMessage}},
	}}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return port.Completion{}, fmt.Errorf("%w: gemini: %w", ErrProviderFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return port.Completion{}, fmt.Errorf("%w: gemini: no candidates in response", ErrProviderFailure)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		text.WriteString(part.Text)
	}

	out := port.Completion{Content: text.String()}
	if um := resp.UsageMetadata; um != nil {
		out.Usage = &domain.TokenUsage{
			PromptTokens:     int(um.PromptTokenCount),
			CompletionTokens: int(um.CandidatesTokenCount),
		}
	}
	return out, nil
}

func (c *GeminiClient) ModelName() string {
	return c.model
}
