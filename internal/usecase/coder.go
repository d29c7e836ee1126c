package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"text/template"
	"unicode/utf8"

	"thematic/internal/adapter/parser"
	"thematic/internal/adapter/quote"
	"thematic/internal/domain"
	"thematic/internal/logger"
	"thematic/internal/port"
	"thematic/internal/resilience"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var coderPrompt = template.Must(template.ParseFS(promptTemplates, "templates/coder_prompt.txt"))

const (
	maxCodesPerChunk = 3
	maxQuotesPerCode = 3
	maxLabelRunes    = 200

	simulatedQuoteRunes = 20
)

var simulatedUsage = domain.TokenUsage{PromptTokens: 100, CompletionTokens: 50}

// TaskResult is the outcome of coding one (identity, chunk) pair. Result is
// always usable; Err is set when the provider could not be reached after
// all retries, in which case Result is empty.
type TaskResult struct {
	Result domain.CoderResult
	Err    error
}

// CoderOptions configures a Coder.
type CoderOptions struct {
	Simulate     bool // Return synthetic results without calling the provider
	DebugContent bool // Log raw completions at debug level
}

// Coder turns one chunk into validated codes from one identity's perspective.
type Coder struct {
	provider port.CompletionProvider
	retrier  *resilience.Retrier
	parser   *parser.ArrayParser
	logger   *slog.Logger
	opts     CoderOptions
}

// NewCoder creates a Coder. provider may be nil in simulate mode.
func NewCoder(provider port.CompletionProvider, retrier *resilience.Retrier, l *slog.Logger, opts CoderOptions) *Coder {
	l = logger.OrDiscard(l)
	return &Coder{
		provider: provider,
		retrier:  retrier,
		parser:   parser.NewArrayParser(l, opts.DebugContent),
		logger:   l,
		opts:     opts,
	}
}

// Simulated reports whether the coder bypasses the provider.
func (c *Coder) Simulated() bool {
	return c.opts.Simulate
}

// Prompt builds the two-part prompt for a chunk.
func (c *Coder) Prompt(identity domain.Identity, chunk domain.Chunk) (port.CompletionRequest, error) {
	var buf bytes.Buffer
	if err := coderPrompt.Execute(&buf, struct{ Text string }{chunk.Text}); err != nil {
		return port.CompletionRequest{}, fmt.Errorf("render coder prompt: %w", err)
	}
	return port.CompletionRequest{
		SystemMessage: identity.PromptPrefix,
		UserMessage:   buf.String(),
	}, nil
}

// Invoke codes chunk and always returns a result. Provider failures yield
// an empty result.
func (c *Coder) Invoke(ctx context.Context, identity domain.Identity, chunk domain.Chunk, interactionID string) domain.CoderResult {
	return c.Code(ctx, identity, chunk, interactionID).Result
}

// Code codes chunk and reports provider failure explicitly.
func (c *Coder) Code(ctx context.Context, identity domain.Identity, chunk domain.Chunk, interactionID string) TaskResult {
	log := c.logger.With(
		"interaction_id", interactionID,
		"chunk_index", chunk.ChunkIndex,
		"identity_id", identity.ID,
	)

	if c.opts.Simulate {
		return TaskResult{Result: c.simulate(log, identity, chunk, interactionID)}
	}

	req, err := c.Prompt(identity, chunk)
	if err != nil {
		log.Warn("failed to build prompt", "error", err.Error())
		return TaskResult{Result: domain.EmptyResult(), Err: err}
	}

	retrier := c.retrier.With(
		"interaction_id", interactionID,
		"chunk_index", chunk.ChunkIndex,
		"identity_id", identity.ID,
	)
	completion, err := resilience.Do(ctx, retrier, func(ctx context.Context) (port.Completion, error) {
		return c.provider.Complete(ctx, req)
	})
	if err != nil {
		log.Warn("completion failed after retries", "error", err.Error())
		return TaskResult{Result: domain.EmptyResult(), Err: err}
	}

	var usage domain.TokenUsage
	if completion.Usage != nil {
		usage = *completion.Usage
		log.Info("completion received",
			"model", c.provider.ModelName(),
			"prompt_tokens", usage.PromptTokens,
			"completion_tokens", usage.CompletionTokens,
		)
	} else {
		log.Warn("completion missing token usage, counting zero")
	}
	if c.opts.DebugContent {
		log.Debug("completion content", "content", completion.Content)
	}

	records := c.parser.With(
		"interaction_id", interactionID,
		"chunk_index", chunk.ChunkIndex,
		"identity_id", identity.ID,
	).Parse(completion.Content)
	return TaskResult{Result: domain.CoderResult{
		Codes:      c.buildCodes(log, records, chunk, interactionID),
		TokenUsage: usage,
	}}
}

func (c *Coder) buildCodes(log *slog.Logger, records []parser.Record, chunk domain.Chunk, interactionID string) []domain.Code {
	codes := []domain.Code{}
	if len(records) > maxCodesPerChunk {
		log.Info("truncating codes", "returned", len(records), "kept", maxCodesPerChunk)
		records = records[:maxCodesPerChunk]
	}

	for ci, rec := range records {
		codeLog := log.With("code_index", ci)

		label, ok := normalizeLabel(rec["label"])
		if !ok {
			codeLog.Warn("dropping code without label")
			continue
		}
		rawQuotes, ok := rec["quotes"].([]any)
		if !ok {
			codeLog.Warn("dropping code without quotes array")
			continue
		}
		if len(rawQuotes) > maxQuotesPerCode {
			rawQuotes = rawQuotes[:maxQuotesPerCode]
		}

		quotes := make([]domain.Quote, 0, len(rawQuotes))
		for qi, raw := range rawQuotes {
			q, ok := c.buildQuote(codeLog.With("quote_index", qi), raw, chunk, interactionID)
			if ok {
				quotes = append(quotes, q)
			}
		}
		if len(quotes) == 0 {
			codeLog.Warn("dropping code with no valid quotes")
			continue
		}
		codes = append(codes, domain.Code{Label: label, Quotes: quotes})
	}
	return codes
}

func (c *Coder) buildQuote(log *slog.Logger, raw any, chunk domain.Chunk, interactionID string) (domain.Quote, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		log.Warn("dropping malformed quote")
		return domain.Quote{}, false
	}
	text, _ := obj["text"].(string)
	if text == "" {
		log.Warn("dropping quote without text")
		return domain.Quote{}, false
	}

	claimedStart, claimedEnd := offset(obj["start_pos"]), offset(obj["end_pos"])
	span, ok := quote.NormalizeSpan(text, chunk.Text, claimedStart, claimedEnd)
	if !ok {
		log.Warn("dropping quote not found in chunk", "quote_length", utf8.RuneCountInString(text))
		return domain.Quote{}, false
	}
	if span.Repaired {
		log.Info("repaired quote span", "start_pos", span.Start, "end_pos", span.End)
	}

	id, err := quote.Encode(quote.Ref{
		InteractionID: interactionID,
		ChunkIndex:    chunk.ChunkIndex,
		Start:         span.Start,
		End:           span.End,
	})
	if err != nil {
		log.Warn("dropping quote with unencodable id", "error", err.Error())
		return domain.Quote{}, false
	}

	verbatim, _ := quote.Slice(chunk.Text, span.Start, span.End)
	return domain.Quote{
		QuoteID:       id,
		Text:          verbatim,
		InteractionID: interactionID,
		ChunkIndex:    chunk.ChunkIndex,
		StartPos:      span.Start,
		EndPos:        span.End,
	}, true
}

func (c *Coder) simulate(log *slog.Logger, identity domain.Identity, chunk domain.Chunk, interactionID string) domain.CoderResult {
	end := min(simulatedQuoteRunes, utf8.RuneCountInString(chunk.Text))
	result := domain.CoderResult{Codes: []domain.Code{}, TokenUsage: simulatedUsage}

	id, err := quote.Encode(quote.Ref{
		InteractionID: interactionID,
		ChunkIndex:    chunk.ChunkIndex,
		Start:         0,
		End:           end,
	})
	if err != nil {
		log.Warn("simulated quote has no valid id", "error", err.Error())
		return result
	}

	text, _ := quote.Slice(chunk.Text, 0, end)
	result.Codes = append(result.Codes, domain.Code{
		Label: "Mock code for " + identity.ID,
		Quotes: []domain.Quote{{
			QuoteID:       id,
			Text:          text,
			InteractionID: interactionID,
			ChunkIndex:    chunk.ChunkIndex,
			StartPos:      0,
			EndPos:        end,
		}},
	})
	return result
}

// normalizeLabel trims the label and caps it at maxLabelRunes code points.
func normalizeLabel(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if utf8.RuneCountInString(s) > maxLabelRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxLabelRunes]))
	}
	return s, true
}

// offset reads a JSON number as a code-point offset. Non-integral or
// non-numeric values count as absent.
func offset(v any) *int {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}
