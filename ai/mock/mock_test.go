package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/poiesic/inquirit/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedQuery(ctx, "golang")
	require.NoError(t, err)
	docs, err := m.EmbedDocuments(ctx, []string{"golang", "rust"})
	require.NoError(t, err)

	assert.Equal(t, a, docs[0])
	assert.NotEqual(t, docs[0], docs[1])
	assert.Equal(t, 2, m.CallCount())

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_FuncOverride(t *testing.T) {
	m := NewMockEmbedder()
	m.EmbedQueryFunc = func(context.Context, string) ([]float32, error) {
		return nil, errors.New("down")
	}

	_, err := m.EmbedQuery(context.Background(), "x")
	assert.Error(t, err)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
	_, err = m.EmbedQuery(context.Background(), "x")
	assert.NoError(t, err)
}

func TestMockLanguageModel(t *testing.T) {
	m := NewMockLanguageModel("first", "second")
	ctx := context.Background()

	out, err := m.Generate(ctx, ai.Prompt{Input: "a"})
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, _ = m.Generate(ctx, ai.Prompt{Input: "b"})
	assert.Equal(t, "second", out)

	out, _ = m.Generate(ctx, ai.Prompt{Input: "echo me"})
	assert.Equal(t, "echo me", out)

	prompts := m.Prompts()
	require.Len(t, prompts, 3)
	assert.Equal(t, "a", prompts[0].Input)
	assert.Equal(t, 3, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider()
	mp := p.(*MockProvider)

	assert.Same(t, mp.GetMockEmbedder(), p.Embedder())
	assert.Same(t, mp.GetMockLanguageModel(), p.LanguageModel())
	require.NoError(t, p.Close())
	assert.True(t, mp.Closed())
}
