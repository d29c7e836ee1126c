// Package parser extracts structured data from unreliable completion output.
package parser

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"thematic/internal/logger"
)

// Record is one loosely-typed JSON object from the array.
type Record = map[string]any

var (
	jsonFence = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```")
	bareFence = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n```")
)

// maxBracketCandidates bounds how many '[' positions the bracket scan tries.
const maxBracketCandidates = 64

// ArrayParser pulls a JSON array of objects out of free-form text. It tries,
// in order: the whole input, a ```json fenced block, a bare ``` fenced block
// and finally the first balanced [...] substring.
type ArrayParser struct {
	logger       *slog.Logger
	debugContent bool
}

// NewArrayParser creates a parser. When debugContent is set, inputs that
// cannot be parsed are logged verbatim at debug level.
func NewArrayParser(l *slog.Logger, debugContent bool) *ArrayParser {
	return &ArrayParser{logger: logger.OrDiscard(l), debugContent: debugContent}
}

// With returns a copy of p whose log records carry args.
func (p *ArrayParser) With(args ...any) *ArrayParser {
	return &ArrayParser{logger: p.logger.With(args...), debugContent: p.debugContent}
}

// Parse returns the objects of the first array found. It never panics and
// returns an empty slice when nothing can be extracted.
func (p *ArrayParser) Parse(raw string) (records []Record) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("json array extraction panicked", "content_length", len(raw), "panic", r)
			records = []Record{}
		}
	}()

	if rec, ok := p.decode(raw); ok {
		return rec
	}
	if m := jsonFence.FindStringSubmatch(raw); m != nil {
		if rec, ok := p.decode(m[1]); ok {
			return rec
		}
	}
	if m := bareFence.FindStringSubmatch(raw); m != nil {
		if rec, ok := p.decode(m[1]); ok {
			return rec
		}
	}
	if rec, ok := p.scanBrackets(raw); ok {
		return rec
	}

	p.logger.Warn("failed to parse json array from completion", "content_length", len(raw))
	if p.debugContent {
		p.logger.Debug("unparsed completion content", "content", raw)
	}
	return []Record{}
}

// decode parses s as an array, or as an object wrapping the array under
// "codes".
func (p *ArrayParser) decode(s string) ([]Record, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case []any:
		return objects(t), true
	case map[string]any:
		codes, ok := t["codes"].([]any)
		if !ok {
			return nil, false
		}
		p.logger.Warn("completion returned an object with a codes key, normalizing to array")
		return objects(codes), true
	}
	return nil, false
}

// scanBrackets tries each '[' in turn and parses the shortest balanced
// bracket run starting there. Brackets inside JSON strings are ignored.
func (p *ArrayParser) scanBrackets(s string) ([]Record, bool) {
	offset := 0
	for tries := 0; tries < maxBracketCandidates; tries++ {
		i := strings.IndexByte(s[offset:], '[')
		if i < 0 {
			return nil, false
		}
		start := offset + i
		if end, ok := matchBracket(s, start); ok {
			var arr []any
			if err := json.Unmarshal([]byte(s[start:end]), &arr); err == nil {
				return objects(arr), true
			}
		}
		offset = start + 1
	}
	return nil, false
}

// matchBracket returns the index just past the ']' that closes the '[' at
// start.
func matchBracket(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = inString
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

func objects(arr []any) []Record {
	out := make([]Record, 0, len(arr))
	for _, el := range arr {
		if obj, ok := el.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}
