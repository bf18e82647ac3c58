package rerank

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/inquirit/ai/mock"
	"github.com/poiesic/inquirit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitAt returns a 2D unit vector whose cosine with (1,0) is sim.
func unitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

// similarityEmbedder maps each document's content to a vector with a fixed
// cosine similarity to the query vector (1,0).
func similarityEmbedder(sims map[string]float64) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedQueryFunc = func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	m.EmbedDocumentsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = unitAt(sims[text])
		}
		return out, nil
	}
	return m
}

func docs(contents ...string) []core.ChunkDocument {
	out := make([]core.ChunkDocument, len(contents))
	for i, c := range contents {
		out[i] = core.ChunkDocument{Content: c, Metadata: core.DocumentMetadata{Title: c, URL: "https://x.test/" + c}}
	}
	return out
}

func newTestReranker(t *testing.T) *Reranker {
	t.Helper()
	r, err := NewReranker()
	require.NoError(t, err)
	return r
}

func TestRerank_ThresholdOrderTruncate(t *testing.T) {
	embedder := similarityEmbedder(map[string]float64{"low": 0.1, "mid": 0.5, "high": 0.9})
	cfg, err := core.NewSearchConfig(core.WithRerankThreshold(0.3), core.WithMaxResults(2))
	require.NoError(t, err)

	out, err := newTestReranker(t).Rerank(context.Background(), "q", docs("low", "mid", "high"), embedder, cfg)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].Content)
	assert.Equal(t, "mid", out[1].Content)
	assert.Equal(t, "https://x.test/high", out[0].Metadata.URL)
}

func TestRerank_EmptyDocsSkipsEmbedder(t *testing.T) {
	embedder := mock.NewMockEmbedder()

	out, err := newTestReranker(t).Rerank(context.Background(), "q", nil, embedder, core.DefaultSearchConfig())
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestRerank_StrictThreshold(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedQueryFunc = func(context.Context, string) ([]float32, error) {
		return []float32{1, 0}, nil
	}
	embedder.EmbedDocumentsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{0.5, 0}, {0.75, 0}}, nil
	}
	cfg, err := core.NewSearchConfig(core.WithSimilarityMeasure(core.SimilarityDot), core.WithRerankThreshold(0.5))
	require.NoError(t, err)

	out, err := newTestReranker(t).Rerank(context.Background(), "q", docs("equal", "above"), embedder, cfg)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "above", out[0].Content)
}

func TestRerank_StableTies(t *testing.T) {
	embedder := similarityEmbedder(map[string]float64{"a": 0.6, "b": 0.8, "c": 0.6, "d": 0.6})

	out, err := newTestReranker(t).Rerank(context.Background(), "q", docs("a", "b", "c", "d"), embedder, core.DefaultSearchConfig())
	require.NoError(t, err)

	got := make([]string, len(out))
	for i, d := range out {
		got[i] = d.Content
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, got)
}

func TestRerank_ResultsSatisfyPolicy(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	contents := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
	input := docs(contents...)

	for _, threshold := range []float64{0, 0.5, 0.7, 0.75, 0.8, 1} {
		for _, limit := range []int{1, 3, 20} {
			cfg, err := core.NewSearchConfig(core.WithRerankThreshold(threshold), core.WithMaxResults(limit))
			require.NoError(t, err)

			out, err := newTestReranker(t).Rerank(context.Background(), "query", input, embedder, cfg)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(out), limit)

			q, _ := embedder.EmbedQuery(context.Background(), "query")
			prev := math.Inf(1)
			for _, d := range out {
				v, _ := embedder.EmbedQuery(context.Background(), d.Content)
				s, err := Score(q, v, core.SimilarityCosine)
				require.NoError(t, err)
				assert.Greater(t, s, threshold)
				assert.LessOrEqual(t, s, prev)
				prev = s
			}
		}
	}
}

func TestRerank_Errors(t *testing.T) {
	ctx := context.Background()
	cfg := core.DefaultSearchConfig()

	t.Run("query embedding failure", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		boom := errors.New("boom")
		embedder.EmbedQueryFunc = func(context.Context, string) ([]float32, error) { return nil, boom }

		_, err := newTestReranker(t).Rerank(ctx, "q", docs("a"), embedder, cfg)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("document embedding failure", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		boom := errors.New("boom")
		embedder.EmbedDocumentsFunc = func(context.Context, []string) ([][]float32, error) { return nil, boom }

		_, err := newTestReranker(t).Rerank(ctx, "q", docs("a"), embedder, cfg)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("count mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedDocumentsFunc = func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}

		_, err := newTestReranker(t).Rerank(ctx, "q", docs("a", "b"), embedder, cfg)
		assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedDocumentsFunc = func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1, 2, 3}}, nil
		}

		_, err := newTestReranker(t).Rerank(ctx, "q", docs("a"), embedder, cfg)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := newTestReranker(t).Rerank(ctx, "q", docs("a"), nil, cfg)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := newTestReranker(t).Rerank(ctx, "q", docs("a"), mock.NewMockEmbedder(), core.SearchConfig{})
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}
