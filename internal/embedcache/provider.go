package embedcache

import (
	"context"

	"github.com/streed/meetnotes/internal/embeddings"
	"github.com/streed/meetnotes/internal/logger"
)

// CachedProvider serves vectors from the cache and asks the inner provider on
// a miss. Cache failures are logged and never fail an embedding.
type CachedProvider struct {
	inner embeddings.Provider
	cache *Cache
}

func NewCachedProvider(inner embeddings.Provider, cache *Cache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	model := p.inner.Name()

	cached, err := p.cache.Get(model, text)
	if err != nil {
		logger.Warn("Embedding cache lookup failed: %v", err)
	} else if cached != nil {
		logger.Debug("Embedding cache hit for %s", model)
		return cached, nil
	}

	vec, err := p.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Put(model, text, vec); err != nil {
		logger.Warn("Failed to cache embedding: %v", err)
	}
	return vec, nil
}

func (p *CachedProvider) Close() error {
	return p.cache.Close()
}
