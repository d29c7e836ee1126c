// Package cache keeps recent provider completions in memory so identical
// prompts within a run are answered once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"thematic/internal/domain"
	"thematic/internal/port"
)

// CompletionCache holds up to maxEntries completions, each for at most ttl.
// Writes are buffered; Wait blocks until earlier Puts are visible.
type CompletionCache struct {
	c   *ristretto.Cache[string, port.Completion]
	ttl time.Duration
}

func NewCompletionCache(maxEntries int, ttl time.Duration) (*CompletionCache, error) {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, port.Completion]{
		NumCounters:        int64(maxEntries) * 10,
		MaxCost:            int64(maxEntries),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &CompletionCache{c: c, ttl: ttl}, nil
}

func cacheKey(model string, req port.CompletionRequest) string {
	h := sha256.New()
	for _, part := range []string{model, req.SystemMessage, req.UserMessage} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *CompletionCache) Get(model string, req port.CompletionRequest) (port.Completion, bool) {
	return c.c.Get(cacheKey(model, req))
}

// Put stores completion at unit cost. The admission policy may reject it,
// in which case the next identical prompt goes to the provider again.
func (c *CompletionCache) Put(model string, req port.CompletionRequest, completion port.Completion) bool {
	return c.c.SetWithTTL(cacheKey(model, req), completion, 1, c.ttl)
}

func (c *CompletionCache) Wait() {
	c.c.Wait()
}

func (c *CompletionCache) Invalidate() {
	c.c.Clear()
}

func (c *CompletionCache) Close() {
	c.c.Close()
}

// CachedProvider answers repeated prompts from a CompletionCache. A cache
// hit reports zero token usage since no tokens were spent.
type CachedProvider struct {
	provider port.CompletionProvider
	cache    *CompletionCache
}

var _ port.CompletionProvider = (*CachedProvider)(nil)

func NewCachedProvider(provider port.CompletionProvider, cache *CompletionCache) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
	}
}

func (p *CachedProvider) Complete(ctx context.Context, req port.CompletionRequest) (port.Completion, error) {
	model := p.provider.ModelName()
	if hit, ok := p.cache.Get(model, req); ok {
		return port.Completion{Content: hit.Content, Usage: &domain.TokenUsage{}}, nil
	}

	completion, err := p.provider.Complete(ctx, req)
	if err != nil {
		return port.Completion{}, err
	}
	p.cache.Put(model, req, completion)
	return completion, nil
}

func (p *CachedProvider) ModelName() string {
	return p.provider.ModelName()
}
