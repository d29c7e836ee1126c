package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestNormalizeSpan_AcceptsCorrectOffsets(t *testing.T) {
	span, ok := NormalizeSpan("world", "Hello world", intp(6), intp(11))
	require.True(t, ok)
	assert.Equal(t, Span{Start: 6, End: 11}, span)
}

func TestNormalizeSpan_RepairsWrongOffsets(t *testing.T) {
	span, ok := NormalizeSpan("world", "Hello world", intp(0), intp(5))
	require.True(t, ok)
	assert.Equal(t, Span{Start: 6, End: 11, Repaired: true}, span)
}

func TestNormalizeSpan_RepairsMissingOrOutOfRangeOffsets(t *testing.T) {
	tests := []struct {
		name       string
		start, end *int
	}{
		{"both missing", nil, nil},
		{"start missing", nil, intp(11)},
		{"negative start", intp(-1), intp(4)},
		{"end past chunk", intp(6), intp(40)},
		{"inverted", intp(11), intp(6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, ok := NormalizeSpan("world", "Hello world", tt.start, tt.end)
			require.True(t, ok)
			assert.Equal(t, 6, span.Start)
			assert.Equal(t, 11, span.End)
			assert.True(t, span.Repaired)
		})
	}
}

func TestNormalizeSpan_FirstOccurrence(t *testing.T) {
	span, ok := NormalizeSpan("ab", "xx ab yy ab", intp(0), intp(2))
	require.True(t, ok)
	assert.Equal(t, 3, span.Start)
	assert.Equal(t, 5, span.End)

	span, ok = NormalizeSpan("ab", "xx ab yy ab", intp(9), intp(11))
	require.True(t, ok)
	assert.False(t, span.Repaired, "a correct claim on a later occurrence is kept")
	assert.Equal(t, 9, span.Start)
}

func TestNormalizeSpan_CodePointOffsets(t *testing.T) {
	chunk := "🎉 café 日本語 done"
	span, ok := NormalizeSpan("日本語", chunk, nil, nil)
	require.True(t, ok)
	assert.Equal(t, 7, span.Start)
	assert.Equal(t, 10, span.End)

	got, ok := Slice(chunk, span.Start, span.End)
	require.True(t, ok)
	assert.Equal(t, "日本語", got)

	span, ok = NormalizeSpan("日本語", chunk, intp(7), intp(10))
	require.True(t, ok)
	assert.False(t, span.Repaired)
}

func TestNormalizeSpan_NotFound(t *testing.T) {
	_, ok := NormalizeSpan("absent", "Hello world", intp(0), intp(6))
	assert.False(t, ok)

	_, ok = NormalizeSpan("World", "Hello world", nil, nil)
	assert.False(t, ok, "matching is exact and case sensitive")

	_, ok = NormalizeSpan("", "Hello world", intp(0), intp(0))
	assert.False(t, ok)
}

func TestSlice(t *testing.T) {
	got, ok := Slice("aé👍b", 1, 3)
	require.True(t, ok)
	assert.Equal(t, "é👍", got)

	_, ok = Slice("abc", 2, 5)
	assert.False(t, ok)
	_, ok = Slice("abc", -1, 2)
	assert.False(t, ok)
}
