package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/inquirit/ai"
	"github.com/poiesic/inquirit/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token(config.APIKey)),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return wrapEmbedder(embedder), nil
}

func wrapEmbedder(embedder embeddings.Embedder) *Embedder {
	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedQuery generates a vector embedding for a single query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating query embedding", "length", len(text))

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate query embedding", "err", err)
		return nil, fmt.Errorf("%w: embed query: %w", core.ErrTransport, err)
	}
	return vector, nil
}

// EmbedDocuments generates vector embeddings for multiple texts in a batch.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating document embeddings", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate document embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: embed documents: %w", core.ErrTransport, err)
	}
	return vectors, nil
}

// token returns the bearer token to send. Local OpenAI-compatible servers
// accept any value, so an empty key becomes "none".
func token(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	return apiKey
}
