package chunker

import (
	"strings"
	"testing"

	"thematic/internal/adapter/analyzer"
	"thematic/internal/domain"
)

func runeSlice(text string, start, end int) string {
	return string([]rune(text)[start:end])
}

func checkInvariants(t *testing.T, text string, chunks []domain.Chunk) {
	t.Helper()
	prevStart, prevEnd := 0, 0
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has ChunkIndex %d", i, chunk.ChunkIndex)
		}
		if chunk.StartPos >= chunk.EndPos {
			t.Errorf("chunk %d has empty span %d-%d", i, chunk.StartPos, chunk.EndPos)
		}
		if chunk.StartPos < prevStart || chunk.StartPos < prevEnd {
			t.Errorf("chunk %d starts at %d before previous chunk %d-%d", i, chunk.StartPos, prevStart, prevEnd)
		}
		if got := runeSlice(text, chunk.StartPos, chunk.EndPos); got != chunk.Text {
			t.Errorf("chunk %d text %q != original[%d:%d] %q", i, chunk.Text, chunk.StartPos, chunk.EndPos, got)
		}
		prevStart, prevEnd = chunk.StartPos, chunk.EndPos
	}
}

func TestParagraphChunkerSingleParagraph(t *testing.T) {
	chunker := NewParagraphChunker(500, analyzer.NewTokenizer())

	text := "Hello world. This is fine."
	chunks := chunker.Chunk(text)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].StartPos != 0 || chunks[0].EndPos != 26 {
		t.Errorf("expected span 0-26, got %d-%d", chunks[0].StartPos, chunks[0].EndPos)
	}
	if chunks[0].TokenCount == 0 {
		t.Error("expected non-zero token count")
	}
	checkInvariants(t, text, chunks)
}

func TestParagraphChunkerParagraphs(t *testing.T) {
	chunker := NewParagraphChunker(500, analyzer.NewTokenizer())

	text := "First para.\n\nSecond 👍 para.\n \nThird e\u0301."
	chunks := chunker.Chunk(text)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].StartPos != 0 || chunks[0].EndPos != 11 {
		t.Errorf("chunk 0: expected 0-11, got %d-%d", chunks[0].StartPos, chunks[0].EndPos)
	}
	if chunks[1].StartPos != 13 || chunks[1].EndPos != 27 {
		t.Errorf("chunk 1: expected 13-27, got %d-%d", chunks[1].StartPos, chunks[1].EndPos)
	}
	if chunks[2].StartPos != 30 || chunks[2].EndPos != 39 {
		t.Errorf("chunk 2: expected 30-39, got %d-%d", chunks[2].StartPos, chunks[2].EndPos)
	}
	checkInvariants(t, text, chunks)
}

func TestParagraphChunkerSentenceSplit(t *testing.T) {
	chunker := NewParagraphChunker(3, analyzer.NewTokenizer())

	text := "Hello world. This is fine."
	chunks := chunker.Chunk(text)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != "Hello world. " {
		t.Errorf("unexpected first sentence %q", chunks[0].Text)
	}
	if chunks[1].StartPos != 13 || chunks[1].EndPos != 26 {
		t.Errorf("expected second sentence at 13-26, got %d-%d", chunks[1].StartPos, chunks[1].EndPos)
	}
	checkInvariants(t, text, chunks)
}

func TestParagraphChunkerLongSentenceKeptWhole(t *testing.T) {
	chunker := NewParagraphChunker(2, analyzer.NewTokenizer())

	text := strings.Repeat("word ", 50) + "end"
	chunks := chunker.Chunk(text)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Error("expected the whole sentence in one chunk")
	}
	if chunks[0].TokenCount <= 2 {
		t.Errorf("expected token count over budget, got %d", chunks[0].TokenCount)
	}
}

func TestParagraphChunkerUnicodeOffsets(t *testing.T) {
	chunker := NewParagraphChunker(4, analyzer.NewTokenizer())

	texts := []string{
		"Ünïcödé sentence one! 🎉🎉 Second one? Third…\n\nnaïve café. 日本語の文です。次の文！",
		"👨‍👩‍👧 family emoji. Combining: äöü. Done",
		"\r\n\r\nLeading separators.\r\n\r\n\r\nTrailing\r\n\r\n",
		"...leading dots. Multiple!!! Marks?!",
	}

	for _, text := range texts {
		chunks := chunker.Chunk(text)
		if len(chunks) == 0 {
			t.Errorf("expected chunks for %q", text)
		}
		checkInvariants(t, text, chunks)
	}
}

func TestParagraphChunkerCoversAllNonBlankText(t *testing.T) {
	chunker := NewParagraphChunker(3, analyzer.NewTokenizer())

	text := "One. Two! Three?\n\nFour... five\n\n\n\nsix"
	chunks := chunker.Chunk(text)
	checkInvariants(t, text, chunks)

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Text)
	}
	strip := func(s string) string { return strings.Join(strings.Fields(s), "") }
	if strip(joined.String()) != strip(text) {
		t.Errorf("chunks dropped text: %q vs %q", joined.String(), text)
	}
}

func TestParagraphChunkerEmptyContent(t *testing.T) {
	chunker := NewParagraphChunker(50, analyzer.NewTokenizer())

	if chunks := chunker.Chunk(""); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
	if chunks := chunker.Chunk("  \n\n\t\n  "); len(chunks) != 0 {
		t.Errorf("expected 0 chunks for blank content, got %d", len(chunks))
	}
}

func TestRuneOffsets(t *testing.T) {
	text := "aé👍b"
	r := newRuneOffsets(text)

	tests := []struct {
		byteOff int
		want    int
	}{
		{0, 0},
		{1, 1},
		{3, 2},
		{7, 3},
		{8, 4},
		{1, 1},
	}
	for _, tt := range tests {
		if got := r.at(tt.byteOff); got != tt.want {
			t.Errorf("at(%d) = %d, want %d", tt.byteOff, got, tt.want)
		}
	}
}
