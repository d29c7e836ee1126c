package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"thematic/internal/domain"
	"thematic/internal/port"
)

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents, f.config = model, contents, config
	return f.resp, f.err
}

func TestGeminiClient_Complete(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: `[{"label":`},
				{Text: `"x"}]`},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     20,
			CandidatesTokenCount: 7,
		},
	}}
	c := newGeminiClient(fake, OpenAIOptions{Model: "gemini-2.5-pro", Temperature: 0.7, MaxTokens: 1000})

	out, err := c.Complete(context.Background(), port.CompletionRequest{SystemMessage: "be terse", UserMessage: "code this"})
	require.NoError(t, err)
	assert.Equal(t, `[{"label":"x"}]`, out.Content)
	require.NotNil(t, out.Usage)
	assert.Equal(t, domain.TokenUsage{PromptTokens: 20, CompletionTokens: 7}, *out.Usage)

	assert.Equal(t, "gemini-2.5-pro", fake.model)
	require.Len(t, fake.contents, 1)
	assert.Equal(t, "code this", fake.contents[0].Parts[0].Text)
	require.NotNil(t, fake.config.SystemInstruction)
	assert.Equal(t, "be terse", fake.config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(1000), fake.config.MaxOutputTokens)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.7, float64(*fake.config.Temperature), 1e-6)
}

func TestGeminiClient_NoUsage(t *testing.T) {
	fake := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "[]"}}}}},
	}}
	c := newGeminiClient(fake, OpenAIOptions{})

	out, err := c.Complete(context.Background(), port.CompletionRequest{UserMessage: "u"})
	require.NoError(t, err)
	assert.Nil(t, out.Usage)
	assert.Equal(t, defaultGeminiModel, c.ModelName())
}

func TestGeminiClient_Errors(t *testing.T) {
	c := newGeminiClient(&fakeModels{err: errors.New("quota")}, OpenAIOptions{})
	_, err := c.Complete(context.Background(), port.CompletionRequest{UserMessage: "u"})
	assert.ErrorIs(t, err, ErrProviderFailure)

	c = newGeminiClient(&fakeModels{resp: &genai.GenerateContentResponse{}}, OpenAIOptions{})
	_, err = c.Complete(context.Background(), port.CompletionRequest{UserMessage: "u"})
	assert.ErrorIs(t, err, ErrProviderFailure)
}
