package storage

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/Tanishq1030/Anchor/internal/cluster"
)

// PersistentEmbedder backs an embedder with the cross-run embedding cache.
// Cache keys include provider and model so switching either never serves a
// stale vector. Store errors degrade to recomputing, never to failure.
type PersistentEmbedder struct {
	delegate cluster.Embedder
	store    *Store
	provider string
	model    string
}

func NewPersistentEmbedder(delegate cluster.Embedder, store *Store, provider, model string) *PersistentEmbedder {
	return &PersistentEmbedder{delegate: delegate, store: store, provider: provider, model: model}
}

func (p *PersistentEmbedder) Dimensions() int {
	return p.delegate.Dimensions()
}

func (p *PersistentEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	sum := blake2b.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])

	if vec, err := p.store.GetEmbedding(p.provider, p.model, key); err == nil && vec != nil {
		return vec, nil
	}

	vec, err := p.delegate.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := p.store.PutEmbedding(p.provider, p.model, key, vec); err != nil {
		p.store.logger.Warn("Failed to cache embedding", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return vec, nil
}
