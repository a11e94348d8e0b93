package cluster

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/errors"
)

// OpenAIEmbedder embeds windows through the OpenAI embeddings API. Remote
// models are only run-deterministic when wrapped in a CachingEmbedder, which
// NewEmbedder takes care of.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New(
			errors.EmbeddingUnavailable,
			"OpenAI embedding provider selected but OPENAI_API_KEY is not set",
			nil,
		).WithFixes(errors.FixAction{
			Type:        errors.RunCommand,
			Command:     "anchor config set embedding.provider hash",
			Safe:        true,
			Description: "Fall back to the offline hash embedder, or export OPENAI_API_KEY",
		})
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(key),
		model:  model,
		dims:   cfg.Dimensions,
	}, nil
}

func (o *OpenAIEmbedder) Dimensions() int {
	return o.dims
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: o.dims,
	})
	if err != nil {
		return nil, errors.New(errors.EmbeddingUnavailable, "Embedding request failed", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New(errors.EmbeddingUnavailable, "Embedding response carried no vectors", nil)
	}

	raw := resp.Data[0].Embedding
	vec := make([]float64, len(raw))
	for i, v := range raw {
		vec[i] = float64(v)
	}
	return vec, nil
}

// NewEmbedder builds the configured provider wrapped in a per-run cache.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	var base Embedder
	switch cfg.Provider {
	case "", config.EmbeddingProviderHash:
		base = NewHashEmbedder(cfg.Dimensions)
	case config.EmbeddingProviderOpenAI:
		e, err := NewOpenAIEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		base = e
	default:
		return nil, errors.New(
			errors.EmbeddingUnavailable,
			"Unknown embedding provider: "+cfg.Provider,
			nil,
		).WithFixes(errors.FixAction{
			Type:        errors.RunCommand,
			Command:     "anchor config set embedding.provider hash",
			Safe:        true,
			Description: "Supported providers are hash and openai",
		})
	}
	return NewCachingEmbedder(base), nil
}
