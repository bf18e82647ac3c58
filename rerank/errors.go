package rerank

import "errors"

var (
	// ErrEmbedderRequired is returned when Rerank is called without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmbeddingCountMismatch is returned when the batch embedding call
	// returns a different number of vectors than documents sent.
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match document count")
)
