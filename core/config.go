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


package core

import (
	"fmt"
	"strings"
)

// SimilarityMeasure selects how embedding vectors are compared.
type SimilarityMeasure string

const (
	// SimilarityCosine compares vectors by the cosine of their angle.
	SimilarityCosine SimilarityMeasure = "cosine"
	// SimilarityDot compares vectors by their raw inner product.
	SimilarityDot SimilarityMeasure = "dot"
)

const (
	// DefaultRerankThreshold is the minimum similarity a chunk must exceed to survive reranking.
	DefaultRerankThreshold = 0.3
	// DefaultMaxResults is the maximum number of chunks kept after reranking.
	DefaultMaxResults = 15
)

// ParseSimilarityMeasure converts a configuration string into a SimilarityMeasure.
// Matching is case-insensitive; "dot_product" is accepted as an alias for dot.
func ParseSimilarityMeasure(s string) (SimilarityMeasure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine":
		return SimilarityCosine, nil
	case "dot", "dot_product":
		return SimilarityDot, nil
	default:
		return "", fmt.Errorf("%w: unknown similarity measure %q", ErrInvalidInput, s)
	}
}

// SearchConfig holds the reranking policy for a search.
// Build it once with NewSearchConfig and pass it by value; nothing in this
// module mutates a SearchConfig after construction.
type SearchConfig struct {
	// SimilarityMeasure selects the scoring metric. Default: cosine.
	SimilarityMeasure SimilarityMeasure

	// RerankThreshold is the exclusive lower bound on similarity, in [0,1]. Default: 0.3.
	RerankThreshold float64

	// MaxResults caps the number of chunks returned by reranking. Default: 15.
	MaxResults int
}

// SearchOption is a functional option for configuring a SearchConfig.
type SearchOption func(*SearchConfig)

// WithSimilarityMeasure sets the similarity metric.
func WithSimilarityMeasure(m SimilarityMeasure) SearchOption {
	return func(c *SearchConfig) {
		c.SimilarityMeasure = m
	}
}

// WithRerankThreshold sets the rerank threshold.
func WithRerankThreshold(threshold float64) SearchOption {
	return func(c *SearchConfig) {
		c.RerankThreshold = threshold
	}
}

// WithMaxResults sets the maximum number of reranked chunks.
func WithMaxResults(n int) SearchOption {
	return func(c *SearchConfig) {
		c.MaxResults = n
	}
}

// DefaultSearchConfig returns the documented defaults: cosine, 0.3, 15.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		SimilarityMeasure: SimilarityCosine,
		RerankThreshold:   DefaultRerankThreshold,
		MaxResults:        DefaultMaxResults,
	}
}

// NewSearchConfig merges the provided options over the defaults and validates the result.
func NewSearchConfig(opts ...SearchOption) (SearchConfig, error) {
	cfg := DefaultSearchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return SearchConfig{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c SearchConfig) Validate() error {
	switch c.SimilarityMeasure {
	case SimilarityCosine, SimilarityDot:
	default:
		return fmt.Errorf("%w: unknown similarity measure %q", ErrInvalidInput, c.SimilarityMeasure)
	}
	if c.RerankThreshold < 0 || c.RerankThreshold > 1 {
		return fmt.Errorf("%w: rerank threshold %v outside [0,1]", ErrInvalidInput, c.RerankThreshold)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("%w: max results must be positive, got %d", ErrInvalidInput, c.MaxResults)
	}
	return nil
}
