package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thematic/internal/adapter/quote"
	"thematic/internal/domain"
)

const testIdentities = `identities:
  - id: objective-analyst
    name: Objective Analyst
    prompt_prefix: You are an objective analyst.
  - id: skeptic
    name: Skeptic
    prompt_prefix: You question every claim.
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "identities.yaml"), []byte(testIdentities), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "interview.txt"), []byte("The onboarding flow felt confusing at first."), 0644))
	return dir
}

func TestCodeCommand_Simulate(t *testing.T) {
	dir := writeProject(t)
	out := filepath.Join(dir, "out.json")
	t.Setenv("THEMATIC_LOG_LEVEL", "error")

	rootCmd.SetArgs([]string{"code", "--simulate", "--dir", dir, "-o", out, dir})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var res domain.CoderResult
	require.NoError(t, json.Unmarshal(data, &res))

	require.Len(t, res.Codes, 2)
	assert.Equal(t, "Mock code for objective-analyst", res.Codes[0].Label)
	assert.Equal(t, "Mock code for skeptic", res.Codes[1].Label)
	assert.Equal(t, domain.TokenUsage{PromptTokens: 200, CompletionTokens: 100}, res.TokenUsage)

	ref, err := quote.Decode(res.Codes[0].Quotes[0].QuoteID)
	require.NoError(t, err)
	assert.Equal(t, 0, ref.ChunkIndex)
	assert.Equal(t, 20, ref.End)

	_, err = os.Stat(filepath.Join(dir, ".thematic", "results.db"))
	assert.True(t, os.IsNotExist(err), "simulate mode must not create the result store")
}

func TestQuoteIDDecode_Invalid(t *testing.T) {
	rootCmd.SetArgs([]string{"quoteid", "decode", "--dir", t.TempDir(), "not-a-quote-id"})
	err := rootCmd.Execute()
	assert.ErrorIs(t, err, quote.ErrInvalidFormat)
}

func TestIdentitiesCommand_MissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"identities", "--dir", t.TempDir()})
	assert.Error(t, rootCmd.Execute())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "<1s"},
		{42, "42s"},
		{125, "2m5s"},
		{3725, "1h2m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(secs(tt.seconds)))
	}
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}
