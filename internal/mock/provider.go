// Package mock provides test doubles for thematic ports using function fields.
package mock

import (
	"context"

	"thematic/internal/domain"
	"thematic/internal/port"
)

// Interface compliance checks.
var (
	_ port.CompletionProvider = (*Provider)(nil)
	_ port.ResultStore        = (*ResultStore)(nil)
	_ port.Chunker            = (*Chunker)(nil)
)

// Provider is a test double for port.CompletionProvider.
// Set CompleteFn before calling Complete.
type Provider struct {
	CompleteFn func(ctx context.Context, req port.CompletionRequest) (port.Completion, error)
	Model      string
}

// Complete delegates to CompleteFn.
func (p *Provider) Complete(ctx context.Context, req port.CompletionRequest) (port.Completion, error) {
	return p.CompleteFn(ctx, req)
}

// ModelName returns Model, or "mock" when unset.
func (p *Provider) ModelName() string {
	if p.Model == "" {
		return "mock"
	}
	return p.Model
}

// ResultStore is a test double for port.ResultStore.
type ResultStore struct {
	GetResultFn func(key string) (domain.CoderResult, bool, error)
	PutResultFn func(key string, result domain.CoderResult) error
}

// GetResult delegates to GetResultFn.
func (s *ResultStore) GetResult(key string) (domain.CoderResult, bool, error) {
	return s.GetResultFn(key)
}

// PutResult delegates to PutResultFn.
func (s *ResultStore) PutResult(key string, result domain.CoderResult) error {
	return s.PutResultFn(key, result)
}

// Chunker is a test double for port.Chunker.
type Chunker struct {
	ChunkFn func(text string) []domain.Chunk
}

// Chunk delegates to ChunkFn.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	return c.ChunkFn(text)
}
