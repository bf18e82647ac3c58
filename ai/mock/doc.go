// Package mock provides test doubles for the ai package interfaces.
//
// Mocks allow injecting custom behavior via function fields and track how
// often they were called. All mocks are safe for concurrent use, since the
// reranker embeds the query and the documents in parallel.
//
// # Usage
//
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedQueryFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1, 0}, nil
//	}
//
//	lm := mock.NewMockLanguageModel("an answer [1]")
//	prompts := lm.Prompts()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockLanguageModel: Returns queued responses in order, then echoes the prompt input
//   - MockProvider: Aggregates mock embedder and language model
package mock
