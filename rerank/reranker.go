// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package rerank orders retrieved chunks by embedding similarity to a query.
package rerank

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/inquirit/ai"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/metrics"
	"golang.org/x/sync/errgroup"
)

// Reranker filters and orders chunk documents by semantic similarity.
// It holds no per-query state and is safe for concurrent use.
type Reranker struct {
	logger *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker) error

// WithLogger sets a custom logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "reranker")
		return nil
	}
}

// NewReranker creates a Reranker.
func NewReranker(opts ...Option) (*Reranker, error) {
	r := &Reranker{
		logger: slog.Default().With("component", "reranker"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type scoredChunk struct {
	doc   core.ChunkDocument
	score float64
}

// Rerank embeds query and docs, keeps documents scoring strictly above
// cfg.RerankThreshold, and returns at most cfg.MaxResults of them ordered
// by descending similarity. Ties keep their input order.
//
// With no documents the embedder is never called.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []core.ChunkDocument, embedder ai.Embedder, cfg core.SearchConfig) ([]core.ChunkDocument, error) {
	if len(docs) == 0 {
		return []core.ChunkDocument{}, nil
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	var queryVector []float32
	var docVectors [][]float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := embedder.EmbedQuery(gctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		queryVector = v
		return nil
	})
	g.Go(func() error {
		vs, err := embedder.EmbedDocuments(gctx, texts)
		if err != nil {
			return fmt.Errorf("embed documents: %w", err)
		}
		docVectors = vs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(docVectors) != len(docs) {
		return nil, fmt.Errorf("%w: got %d vectors for %d documents", ErrEmbeddingCountMismatch, len(docVectors), len(docs))
	}

	kept := make([]scoredChunk, 0, len(docs))
	for i, vector := range docVectors {
		score, err := Score(queryVector, vector, cfg.SimilarityMeasure)
		if err != nil {
			return nil, fmt.Errorf("score document %d: %w", i, err)
		}
		if score > cfg.RerankThreshold {
			kept = append(kept, scoredChunk{doc: docs[i], score: score})
		}
	}

	slices.SortStableFunc(kept, func(a, b scoredChunk) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(kept) > cfg.MaxResults {
		kept = kept[:cfg.MaxResults]
	}

	metrics.RerankDocuments.WithLabelValues(metrics.OutcomeKept).Add(float64(len(kept)))
	metrics.RerankDocuments.WithLabelValues(metrics.OutcomeDropped).Add(float64(len(docs) - len(kept)))
	r.logger.Debug("reranked documents", "in", len(docs), "kept", len(kept), "threshold", cfg.RerankThreshold)

	out := make([]core.ChunkDocument, len(kept))
	for i, s := range kept {
		out[i] = s.doc
	}
	return out, nil
}
