package ai

import (
	"context"

	"github.com/poiesic/inquirit/core"
)

// Embedder generates vector embeddings from text for semantic similarity ranking.
// Implementations must be thread-safe for concurrent use.
//
// The method set matches langchaingo's embeddings.Embedder, so any langchaingo
// embedder can be passed where an Embedder is expected.
type Embedder interface {
	// EmbedQuery generates a vector embedding for a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates vector embeddings for multiple texts in one batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Prompt is a single chat invocation: a system instruction, prior
// conversation and the new user input.
type Prompt struct {
	// Instructions becomes the system message. May be empty.
	Instructions string

	// History is injected verbatim between the system message and Input.
	History []core.Turn

	// Input is the final human message.
	Input string
}

// LanguageModel produces chat completions.
// Implementations must be thread-safe for concurrent use.
type LanguageModel interface {
	// Generate runs one completion and returns the raw text of the first choice.
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// LanguageModel returns the chat completion service.
	LanguageModel() LanguageModel

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
