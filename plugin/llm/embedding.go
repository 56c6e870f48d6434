package llm

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbeddingFunc turns text into a vector.
type EmbeddingFunc func(ctx context.Context, text string) ([]float32, error)

// NewOpenAICompatibleEmbedder embeds through an OpenAI-compatible embeddings endpoint.
func NewOpenAICompatibleEmbedder(baseURL, apiKey, model string) (EmbeddingFunc, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create openai embedding client")
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedder")
	}
	return func(ctx context.Context, text string) ([]float32, error) {
		vector, err := embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, errors.Wrap(err, "failed to embed text")
		}
		return vector, nil
	}, nil
}
