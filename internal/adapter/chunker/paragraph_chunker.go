package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"thematic/internal/domain"
	"thematic/internal/port"
)

var (
	// One or more blank lines. Lines holding only spaces or tabs count as blank.
	paragraphSep = regexp.MustCompile(`\r?\n(?:[ \t]*\r?\n)+`)

	// A run of non-terminators closed by terminators and trailing space, or a
	// terminator-free tail.
	sentenceSpan = regexp.MustCompile(`[^.!?…。！？]*[.!?…。！？]+\s*|[^.!?…。！？]+$`)
)

// ParagraphChunker emits one chunk per paragraph, falling back to sentences
// for paragraphs over the token budget. Paragraph separators belong to no
// chunk.
type ParagraphChunker struct {
	maxTokens int
	tokenizer port.Tokenizer
}

func NewParagraphChunker(maxTokens int, tokenizer port.Tokenizer) *ParagraphChunker {
	if maxTokens < 1 {
		maxTokens = 1
	}
	return &ParagraphChunker{
		maxTokens: maxTokens,
		tokenizer: tokenizer,
	}
}

// span is a half-open byte range into the original text.
type span struct {
	start, end int
}

func (c *ParagraphChunker) Chunk(text string) []domain.Chunk {
	chunks := []domain.Chunk{}
	if text == "" {
		return chunks
	}

	offsets := newRuneOffsets(text)
	emit := func(s span, tokens int) {
		chunks = append(chunks, domain.Chunk{
			ChunkIndex: len(chunks),
			Text:       text[s.start:s.end],
			StartPos:   offsets.at(s.start),
			EndPos:     offsets.at(s.end),
			TokenCount: tokens,
		})
	}

	for _, para := range paragraphSpans(text) {
		paraText := text[para.start:para.end]
		tokens := c.tokenizer.CountTokens(paraText)
		if tokens <= c.maxTokens {
			emit(para, tokens)
			continue
		}

		for _, loc := range sentenceSpan.FindAllStringIndex(paraText, -1) {
			sent := span{start: para.start + loc[0], end: para.start + loc[1]}
			sentText := text[sent.start:sent.end]
			if isBlank(sentText) {
				continue
			}
			emit(sent, c.tokenizer.CountTokens(sentText))
		}
	}

	return chunks
}

// paragraphSpans returns the non-blank byte spans between separators.
func paragraphSpans(text string) []span {
	var spans []span
	start := 0
	add := func(end int) {
		if end > start && !isBlank(text[start:end]) {
			spans = append(spans, span{start: start, end: end})
		}
	}
	for _, sep := range paragraphSep.FindAllStringIndex(text, -1) {
		add(sep[0])
		start = sep[1]
	}
	add(len(text))
	return spans
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// runeOffsets converts byte offsets to code-point offsets. Lookups must be
// non-decreasing, which lets each conversion resume where the last one ended.
type runeOffsets struct {
	text    string
	bytePos int
	runePos int
}

func newRuneOffsets(text string) *runeOffsets {
	return &runeOffsets{text: text}
}

func (r *runeOffsets) at(byteOff int) int {
	if byteOff < r.bytePos {
		r.bytePos, r.runePos = 0, 0
	}
	r.runePos += utf8.RuneCountInString(r.text[r.bytePos:byteOff])
	r.bytePos = byteOff
	return r.runePos
}
