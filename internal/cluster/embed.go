// Package cluster groups call-site contexts into semantic roles using
// embedding similarity. Clustering is fully deterministic: identical input
// always yields identical roles.
package cluster

import (
	"context"
	"math"
	"sync"
)

// Embedder turns a text window into a fixed-dimension vector. Implementations
// must be deterministic: the same text yields the same vector within a run.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimensions() int
}

// CachingEmbedder memoizes embeddings per distinct text. Two lookups of the
// same window within a run are guaranteed to see the same vector even when
// the delegate is a remote model.
type CachingEmbedder struct {
	delegate Embedder

	mu    sync.Mutex
	cache map[string][]float64
}

func NewCachingEmbedder(delegate Embedder) *CachingEmbedder {
	return &CachingEmbedder{
		delegate: delegate,
		cache:    make(map[string][]float64),
	}
}

func (c *CachingEmbedder) Dimensions() int {
	return c.delegate.Dimensions()
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	c.mu.Lock()
	if v, ok := c.cache[text]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.delegate.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[text] = v
	c.mu.Unlock()
	return v, nil
}

// CosineSimilarity is the single similarity metric used across the pipeline:
// context-to-context, role-to-role, and role-to-anchor comparisons all go
// through here.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
