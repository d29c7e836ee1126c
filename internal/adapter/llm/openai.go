package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"thematic/internal/domain"
	"thematic/internal/port"
)

var _ port.CompletionProvider = (*OpenAIClient)(nil)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
	Error *apiError  `json:"error,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// OpenAIOptions holds the settings shared by OpenAI-compatible backends.
type OpenAIOptions struct {
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

func NewOpenAIClient(apiKeyEnv string, opts OpenAIOptions) (*OpenAIClient, error) {
	return newCompatibleClient(apiKeyEnv, "https://api.openai.com/v1", opts)
}

func NewDeepSeekClient(apiKeyEnv string, opts OpenAIOptions) (*OpenAIClient, error) {
	return newCompatibleClient(apiKeyEnv, "https://api.deepseek.com/v1", opts)
}

// NewOllamaClient targets a local Ollama server, which needs no API key.
func NewOllamaClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		opts.APIKey = "ollama"
	}
	return newCompatibleClient("", "http://localhost:11434/v1", opts)
}

func newCompatibleClient(apiKeyEnv, defaultBaseURL string, opts OpenAIOptions) (*OpenAIClient, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
		}
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		// Per-attempt deadlines come from the caller's context.
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	return &OpenAIClient{
		apiKey:      apiKey,
		model:       opts.Model,
		baseURL:     baseURL,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      client,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req port.CompletionRequest) (port.Completion, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemMessage},
			{Role: "user", Content: req.UserMessage},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return port.Completion{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return port.Completion{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return port.Completion{}, fmt.Errorf("%w: request failed: %w", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return port.Completion{}, fmt.Errorf("%w: failed to read response: %w", ErrProviderFailure, err)
	}

	var chatResp chatResponse
	parseErr := json.Unmarshal(body, &chatResp)

	if resp.StatusCode != http.StatusOK {
		if parseErr == nil && chatResp.Error != nil {
			return port.Completion{}, fmt.Errorf("%w: status %d: %s", ErrProviderFailure, resp.StatusCode, chatResp.Error.Message)
		}
		return port.Completion{}, fmt.Errorf("%w: status %d", ErrProviderFailure, resp.StatusCode)
	}
	if parseErr != nil {
		return port.Completion{}, fmt.Errorf("%w: failed to parse response: %w", ErrProviderFailure, parseErr)
	}
	if chatResp.Error != nil {
		return port.Completion{}, fmt.Errorf("%w: API error: %s", ErrProviderFailure, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return port.Completion{}, fmt.Errorf("%w: no choices in response", ErrProviderFailure)
	}

	out := port.Completion{Content: chatResp.Choices[0].Message.Content}
	if chatResp.Usage != nil {
		out.Usage = &domain.TokenUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
		}
	}
	return out, nil
}

func (c *OpenAIClient) ModelName() string {
	return c.model
}
