package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thematic/internal/domain"
	"thematic/internal/port"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient("", OpenAIOptions{
		Model:       "gpt-4o",
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "[]"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3}
		}`))
	})

	out, err := c.Complete(context.Background(), port.CompletionRequest{SystemMessage: "sys", UserMessage: "user"})
	require.NoError(t, err)
	assert.Equal(t, "[]", out.Content)
	require.NotNil(t, out.Usage)
	assert.Equal(t, domain.TokenUsage{PromptTokens: 12, CompletionTokens: 3}, *out.Usage)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 1000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "user"}, got.Messages[1])
}

func TestOpenAIClient_MissingUsage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "hi"}}]}`))
	})

	out, err := c.Complete(context.Background(), port.CompletionRequest{UserMessage: "u"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Content)
	assert.Nil(t, out.Usage)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"rate limited with api error", http.StatusTooManyRequests, `{"error": {"message": "slow down"}}`},
		{"api error on 200", http.StatusOK, `{"error": {"message": "bad model"}}`},
		{"no choices", http.StatusOK, `{"choices": []}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Complete(context.Background(), port.CompletionRequest{UserMessage: "u"})
			assert.ErrorIs(t, err, ErrProviderFailure)
		})
	}
}

func TestOpenAIClient_HonorsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Complete(ctx, port.CompletionRequest{UserMessage: "u"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestNewOpenAIClient_MissingKey(t *testing.T) {
	t.Setenv("THEMATIC_TEST_EMPTY_KEY", "")
	_, err := NewOpenAIClient("THEMATIC_TEST_EMPTY_KEY", OpenAIOptions{Model: "gpt-4o"})
	assert.Error(t, err)
}

func TestNewOllamaClient_NoKeyNeeded(t *testing.T) {
	c, err := NewOllamaClient(OpenAIOptions{Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", c.baseURL)
	assert.Equal(t, "llama3", c.ModelName())
}
