package memstore

import (
	"sync"
	"testing"

	"thematic/internal/domain"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	res := domain.CoderResult{
		Codes:      []domain.Code{{Label: "a", Quotes: []domain.Quote{{Text: "x", EndPos: 1}}}},
		TokenUsage: domain.TokenUsage{PromptTokens: 1},
	}
	if err := s.PutResult("k", res); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.GetResult("k")
	if err != nil || !ok {
		t.Fatalf("GetResult(k) = %v, %v", ok, err)
	}
	if got.Codes[0].Label != "a" || got.TokenUsage.PromptTokens != 1 {
		t.Errorf("unexpected result: %+v", got)
	}

	if _, ok, _ := s.GetResult("missing"); ok {
		t.Error("expected missing key to report false")
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	s := NewMemoryStore()
	res := domain.CoderResult{Codes: []domain.Code{{Label: "a", Quotes: []domain.Quote{{Text: "x"}}}}}
	s.PutResult("k", res)

	res.Codes[0].Label = "mutated"
	got, _, _ := s.GetResult("k")
	if got.Codes[0].Label != "a" {
		t.Error("stored result aliased the caller's slice")
	}

	got.Codes[0].Quotes[0].Text = "mutated"
	again, _, _ := s.GetResult("k")
	if again.Codes[0].Quotes[0].Text != "x" {
		t.Error("returned result aliased the stored slice")
	}
}

func TestMemoryStore_DeleteClear(t *testing.T) {
	s := NewMemoryStore()
	s.PutResult("a", domain.EmptyResult())
	s.PutResult("b", domain.EmptyResult())

	s.Delete("a")
	if s.Len() != 1 {
		t.Errorf("expected 1 result after Delete, got %d", s.Len())
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expected 0 results after Clear, got %d", s.Len())
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			s.PutResult(key, domain.EmptyResult())
			s.GetResult(key)
		}(i)
	}
	wg.Wait()
	if s.Len() != 26 {
		t.Errorf("expected 26 keys, got %d", s.Len())
	}
}
