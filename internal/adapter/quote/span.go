// Package quote validates quote spans against their chunk and encodes the
// canonical quote identifier.
package quote

import (
	"strings"
	"unicode/utf8"
)

// Span is a half-open code-point range within a chunk.
type Span struct {
	Start    int
	End      int
	Repaired bool // The claimed offsets were wrong and the span was relocated
}

// NormalizeSpan checks that quoteText sits at the claimed offsets of
// chunkText. If it does not, the span is relocated to the first exact
// occurrence of quoteText. ok is false when the quote does not occur in the
// chunk at all. Offsets are code points; no fuzzy matching is attempted.
func NormalizeSpan(quoteText, chunkText string, claimedStart, claimedEnd *int) (span Span, ok bool) {
	if quoteText == "" {
		return Span{}, false
	}

	if claimedStart != nil && claimedEnd != nil {
		start, end := *claimedStart, *claimedEnd
		runes := []rune(chunkText)
		if start >= 0 && start < end && end <= len(runes) && string(runes[start:end]) == quoteText {
			return Span{Start: start, End: end}, true
		}
	}

	idx := strings.Index(chunkText, quoteText)
	if idx < 0 {
		return Span{}, false
	}
	start := utf8.RuneCountInString(chunkText[:idx])
	return Span{
		Start:    start,
		End:      start + utf8.RuneCountInString(quoteText),
		Repaired: true,
	}, true
}

// Slice returns the code-point range [start, end) of text, or false when the
// range is out of bounds.
func Slice(text string, start, end int) (string, bool) {
	runes := []rune(text)
	if start < 0 || start > end || end > len(runes) {
		return "", false
	}
	return string(runes[start:end]), true
}
