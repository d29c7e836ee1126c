package llm

import (
	"context"
	"fmt"
	"os"

	"thematic/config"
	"thematic/internal/port"
)

// defaultKeyEnv maps providers to their conventional API key variable. It
// applies when the configured variable is still the OpenAI default.
var defaultKeyEnv = map[string]string{
	"openai":   "OPENAI_API_KEY",
	"deepseek": "DEEPSEEK_API_KEY",
	"gemini":   "GEMINI_API_KEY",
}

// defaultModel maps providers to the model used when the configured model
// is empty or still the OpenAI default.
var defaultModel = map[string]string{
	"openai":   "gpt-4o",
	"deepseek": "deepseek-chat",
	"ollama":   "llama3.1",
	"gemini":   defaultGeminiModel,
}

// NewProvider builds the completion provider named in cfg.
func NewProvider(ctx context.Context, cfg config.ProviderConfig) (port.CompletionProvider, error) {
	opts := OpenAIOptions{
		Model:       modelName(cfg),
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	keyEnv := apiKeyEnv(cfg)

	switch cfg.Name {
	case "openai":
		return NewOpenAIClient(keyEnv, opts)
	case "deepseek":
		return NewDeepSeekClient(keyEnv, opts)
	case "ollama":
		return NewOllamaClient(opts)
	case "gemini":
		apiKey := os.Getenv(keyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", keyEnv)
		}
		return NewGeminiClient(ctx, apiKey, opts)
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Name)
	}
}

func apiKeyEnv(cfg config.ProviderConfig) string {
	if cfg.APIKeyEnv != "" && cfg.APIKeyEnv != defaultKeyEnv["openai"] {
		return cfg.APIKeyEnv
	}
	if env, ok := defaultKeyEnv[cfg.Name]; ok {
		return env
	}
	return cfg.APIKeyEnv
}

func modelName(cfg config.ProviderConfig) string {
	if cfg.Model != "" && cfg.Model != defaultModel["openai"] {
		return cfg.Model
	}
	if m, ok := defaultModel[cfg.Name]; ok {
		return m
	}
	return cfg.Model
}
