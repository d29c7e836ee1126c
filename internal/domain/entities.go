package domain

import (
	"errors"
	"strings"
	"time"
)

// Interaction is one unit of source text to be coded.
type Interaction struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Chunk is a token-bounded slice of an interaction. StartPos and EndPos are
// code-point offsets into the interaction text.
type Chunk struct {
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	StartPos   int    `json:"start_pos"`
	EndPos     int    `json:"end_pos"`
	TokenCount int    `json:"token_count"`
}

type Quote struct {
	QuoteID       string `json:"quote_id"`
	Text          string `json:"text"`
	InteractionID string `json:"interaction_id"`
	ChunkIndex    int    `json:"chunk_index"`
	StartPos      int    `json:"start_pos"`
	EndPos        int    `json:"end_pos"`
}

type Code struct {
	Label  string  `json:"label"`
	Quotes []Quote `json:"quotes"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Add returns the field-wise sum of u and o.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
	}
}

// CoderResult is the output of coding one (identity, chunk) pair, or the
// aggregate of many.
type CoderResult struct {
	Codes      []Code     `json:"codes"`
	TokenUsage TokenUsage `json:"token_usage"`
}

// EmptyResult returns a result with no codes and zero usage.
func EmptyResult() CoderResult {
	return CoderResult{Codes: []Code{}}
}

// Merge appends o's codes after r's and sums usage.
func (r CoderResult) Merge(o CoderResult) CoderResult {
	codes := make([]Code, 0, len(r.Codes)+len(o.Codes))
	codes = append(codes, r.Codes...)
	codes = append(codes, o.Codes...)
	return CoderResult{
		Codes:      codes,
		TokenUsage: r.TokenUsage.Add(o.TokenUsage),
	}
}

// QuoteCount returns the number of quotes across all codes.
func (r CoderResult) QuoteCount() int {
	n := 0
	for _, c := range r.Codes {
		n += len(c.Quotes)
	}
	return n
}

// Identity is a named analytical perspective.
type Identity struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	PromptPrefix string `json:"prompt_prefix" yaml:"prompt_prefix"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

var ErrInvalidIdentity = errors.New("invalid identity")

func (i Identity) Validate() error {
	switch {
	case strings.TrimSpace(i.ID) == "":
		return errors.Join(ErrInvalidIdentity, errors.New("id is required"))
	case strings.TrimSpace(i.Name) == "":
		return errors.Join(ErrInvalidIdentity, errors.New("name is required"))
	case strings.TrimSpace(i.PromptPrefix) == "":
		return errors.Join(ErrInvalidIdentity, errors.New("prompt_prefix is required"))
	}
	return nil
}

// RetryPolicy bounds how a fallible call is retried.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	PerAttemptTimeout time.Duration
}

var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.Join(ErrInvalidRetryPolicy, errors.New("max_attempts must be >= 1"))
	}
	if p.BaseDelay < 0 {
		return errors.Join(ErrInvalidRetryPolicy, errors.New("base_delay must be >= 0"))
	}
	return nil
}
