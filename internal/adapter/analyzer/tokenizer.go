package analyzer

import (
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// charsPerToken is the average number of characters a BPE tokenizer packs
// into one token for alphanumeric text.
const charsPerToken = 4

// Tokenizer estimates provider token counts from Unicode word boundaries.
type Tokenizer struct{}

// NewTokenizer creates a new Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// CountTokens returns an approximate token count for budget estimation.
// Alphanumeric words cost one token per four characters (at least one),
// every other non-space segment such as punctuation or an emoji costs one.
func (t *Tokenizer) CountTokens(text string) int {
	count := 0
	for _, seg := range segmentWords(text) {
		if !isWordLike(seg) {
			count++
			continue
		}
		n := utf8.RuneCountInString(seg)
		count += (n + charsPerToken - 1) / charsPerToken
	}
	return count
}

// segmentWords splits text on UAX #29 word boundaries and drops whitespace
// segments.
func segmentWords(text string) []string {
	var words []string
	state := -1
	for len(text) > 0 {
		var word string
		word, text, state = uniseg.FirstWordInString(text, state)
		if isSpace(word) {
			continue
		}
		words = append(words, word)
	}
	return words
}

func isSpace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func isWordLike(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
