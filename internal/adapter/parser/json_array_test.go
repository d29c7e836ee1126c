package parser

import (
	"log/slog"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thematic/internal/logger/logtest"
)

func newParser(t *testing.T, debugContent bool) (*ArrayParser, *logtest.Recorder) {
	t.Helper()
	rec, l := logtest.New()
	return NewArrayParser(l, debugContent), rec
}

func TestParse_DirectArray(t *testing.T) {
	p, rec := newParser(t, false)

	got := p.Parse(`[{"label": "trust", "quotes": []}, {"label": "fear"}]`)
	require.Len(t, got, 2)
	assert.Equal(t, "trust", got[0]["label"])
	assert.Equal(t, "fear", got[1]["label"])
	assert.Zero(t, rec.Count(slog.LevelWarn))
}

func TestParse_CodesObjectNormalizesWithOneWarning(t *testing.T) {
	p, rec := newParser(t, false)

	got := p.Parse(`{"codes":[{"label":"x","quotes":[{"text":"a","start_pos":0,"end_pos":1}]}]}`)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0]["label"])
	assert.Equal(t, 1, rec.Count(slog.LevelWarn))
}

func TestParse_JSONFence(t *testing.T) {
	p, rec := newParser(t, false)

	raw := "Here are the codes:\n```json\n[{\"label\": \"a\"}]\n```\nHope this helps."
	got := p.Parse(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0]["label"])
	assert.Zero(t, rec.Count(slog.LevelWarn))
}

func TestParse_JSONFenceWithCodesObject(t *testing.T) {
	p, rec := newParser(t, false)

	raw := "```json\n{\"codes\": [{\"label\": \"a\"}]}\n```"
	got := p.Parse(raw)
	require.Len(t, got, 1)
	assert.Equal(t, 1, rec.Count(slog.LevelWarn))
}

func TestParse_BareFence(t *testing.T) {
	p, _ := newParser(t, false)

	raw := "Sure!\n```\n[{\"label\": \"b\"}]\n```"
	got := p.Parse(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0]["label"])
}

func TestParse_EmbeddedArray(t *testing.T) {
	p, _ := newParser(t, false)

	raw := `The answer is [{"label": "c", "note": "brackets ] in [ strings"}] and that is all [sic].`
	got := p.Parse(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0]["label"])
}

func TestParse_SkipsUnparseableBracketRuns(t *testing.T) {
	p, _ := newParser(t, false)

	raw := `See [note 1] for details: [{"label": "d"}]`
	got := p.Parse(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0]["label"])
}

func TestParse_DropsNonObjectElements(t *testing.T) {
	p, _ := newParser(t, false)

	got := p.Parse(`[1, "two", {"label": "e"}, null, [3]]`)
	require.Len(t, got, 1)
	assert.Equal(t, "e", got[0]["label"])
}

func TestParse_FailureLogsOnlyLength(t *testing.T) {
	p, rec := newParser(t, false)

	raw := "I could not find any codes in this text, secret=hunter2"
	got := p.Parse(raw)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, slog.LevelWarn, entries[0].Level)
	assert.Equal(t, int64(len(raw)), entries[0].Attrs["content_length"])
	for _, e := range entries {
		for _, v := range e.Attrs {
			if s, ok := v.(string); ok {
				assert.NotContains(t, s, "hunter2")
			}
		}
	}
}

func TestParse_DebugContentOptIn(t *testing.T) {
	p, rec := newParser(t, true)

	p.Parse("not json")
	require.Equal(t, 1, rec.Count(slog.LevelDebug))
	entries := rec.Entries()
	assert.Equal(t, "not json", entries[len(entries)-1].Attrs["content"])
}

func TestParse_ObjectWithoutCodes(t *testing.T) {
	p, _ := newParser(t, false)

	assert.Empty(t, p.Parse(`{"label": "x"}`))
	assert.Empty(t, p.Parse(`{"codes": "nope"}`))
}

func TestParse_NeverPanics(t *testing.T) {
	p, _ := newParser(t, false)

	inputs := []string{
		"",
		" ",
		"[",
		"]",
		"[[[[[[",
		"]]]]]][[[[",
		"```json\n```",
		"```\n\n```",
		`"unterminated [string`,
		`[{"a": "\"]"}]`,
		strings.Repeat("[", 20000) + strings.Repeat("]", 20000),
		strings.Repeat("[", 50000),
		"{\"codes\": null}",
		"\xff\xfe\x00[\x00]",
	}

	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 200; i++ {
		b := make([]byte, r.IntN(256))
		for j := range b {
			b[j] = byte(r.IntN(256))
		}
		inputs = append(inputs, string(b))
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			got := p.Parse(in)
			assert.NotNil(t, got)
		})
	}
}

func TestMatchBracket(t *testing.T) {
	tests := []struct {
		in      string
		wantEnd int
		wantOK  bool
	}{
		{"[]", 2, true},
		{"[[1],[2]] tail", 9, true},
		{`["]"]`, 5, true},
		{`["\"]"]`, 7, true},
		{"[[", 0, false},
	}
	for _, tt := range tests {
		end, ok := matchBracket(tt.in, 0)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.wantEnd, end, tt.in)
	}
}

func TestParse_WithCarriesAttrs(t *testing.T) {
	p, rec := newParser(t, false)

	p.With("interaction_id", "i1", "chunk_index", 3).Parse("no array here")
	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "i1", entries[0].Attrs["interaction_id"])
	assert.Equal(t, int64(3), entries[0].Attrs["chunk_index"])
	assert.Equal(t, int64(len("no array here")), entries[0].Attrs["content_length"])
}
