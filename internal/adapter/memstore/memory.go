// Package memstore is an in-memory port.ResultStore for tests and one-off
// runs that should not touch disk.
package memstore

import (
	"sync"

	"thematic/internal/domain"
	"thematic/internal/port"
)

var _ port.ResultStore = (*MemoryStore)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]domain.CoderResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]domain.CoderResult),
	}
}

func (s *MemoryStore) GetResult(key string) (domain.CoderResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[key]
	if !ok {
		return domain.CoderResult{}, false, nil
	}
	return clone(res), true, nil
}

func (s *MemoryStore) PutResult(key string, result domain.CoderResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = clone(result)
	return nil
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, key)
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = make(map[string]domain.CoderResult)
}

// clone copies the code and quote slices so callers cannot mutate stored
// results.
func clone(r domain.CoderResult) domain.CoderResult {
	codes := make([]domain.Code, len(r.Codes))
	for i, c := range r.Codes {
		codes[i] = domain.Code{Label: c.Label, Quotes: append([]domain.Quote(nil), c.Quotes...)}
	}
	return domain.CoderResult{Codes: codes, TokenUsage: r.TokenUsage}
}
