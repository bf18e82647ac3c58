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


package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/inquirit/ai"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/metrics"
	"github.com/poiesic/inquirit/rerank"
	"github.com/poiesic/inquirit/websearch"
)

// WebSearcher returns ranked results for a query. Failures yield an empty slice.
type WebSearcher interface {
	Search(ctx context.Context, query string) []websearch.Result
}

// PageFetcher turns URLs into chunk documents. Failed pages contribute nothing.
type PageFetcher interface {
	Fetch(ctx context.Context, urls []string) []core.ChunkDocument
}

// DocumentReranker filters and orders chunks by relevance to a query.
type DocumentReranker interface {
	Rerank(ctx context.Context, query string, docs []core.ChunkDocument, embedder ai.Embedder, cfg core.SearchConfig) ([]core.ChunkDocument, error)
}

// Answer is the outcome of one search.
type Answer struct {
	// QueryID identifies this search in logs.
	QueryID string

	// Text is the model's answer with [n] citations into Sources.
	Text string

	// Sources are the documents given to the model, in citation order.
	Sources []core.ChunkDocument

	// RephrasedQuery is the query sent to the search endpoint. Empty when
	// the rephraser decided no search was needed.
	RephrasedQuery string
}

// Searcher answers questions by searching the web, reranking page chunks
// and asking a language model to write a cited answer. It keeps no state
// between calls and is safe for concurrent use.
type Searcher struct {
	web      WebSearcher
	fetcher  PageFetcher
	reranker DocumentReranker
	config   core.SearchConfig
	skip     bool
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// WithSearchConfig sets the reranking policy. The config is validated here
// and never changed afterwards.
func WithSearchConfig(cfg core.SearchConfig) Option {
	return func(s *Searcher) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s.config = cfg
		return nil
	}
}

// WithReranker replaces the default embedding reranker.
func WithReranker(r DocumentReranker) Option {
	return func(s *Searcher) error {
		if r == nil {
			return ErrRerankerRequired
		}
		s.reranker = r
		return nil
	}
}

// WithSkipDecision lets the rephrase step answer "not_needed", in which
// case search, fetch and rerank are skipped and the answer is written from
// the conversation alone. Off by default: every query is searched.
func WithSkipDecision() Option {
	return func(s *Searcher) error {
		s.skip = true
		return nil
	}
}

// WithClock sets the time source used for the date in the answer prompt.
func WithClock(now func() time.Time) Option {
	return func(s *Searcher) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(web WebSearcher, fetcher PageFetcher, opts ...Option) (*Searcher, error) {
	if web == nil {
		return nil, ErrWebSearcherRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}

	s := &Searcher{
		web:     web,
		fetcher: fetcher,
		config:  core.DefaultSearchConfig(),
		now:     time.Now,
		logger:  slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.reranker == nil {
		r, err := rerank.NewReranker(rerank.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.reranker = r
	}
	return s, nil
}

// Search answers query and returns the raw answer text.
func (s *Searcher) Search(ctx context.Context, query string, lm ai.LanguageModel, em ai.Embedder, history []core.Turn) (string, error) {
	answer, err := s.Answer(ctx, query, lm, em, history)
	if err != nil {
		return "", err
	}
	return answer.Text, nil
}

// Answer answers query and returns the text together with its sources.
func (s *Searcher) Answer(ctx context.Context, query string, lm ai.LanguageModel, em ai.Embedder, history []core.Turn) (*Answer, error) {
	return s.AnswerWithMonitor(ctx, query, lm, em, history, nil)
}

// AnswerWithMonitor is Answer with callbacks at each stage of the pipeline.
func (s *Searcher) AnswerWithMonitor(ctx context.Context, query string, lm ai.LanguageModel, em ai.Embedder, history []core.Turn, monitor SearchMonitor) (*Answer, error) {
	if lm == nil {
		return nil, ErrLanguageModelRequired
	}
	if em == nil {
		return nil, ErrEmbedderRequired
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	queryID := uuid.NewString()
	logger := s.logger.With("query_id", queryID)
	monitor.Start(queryID, query)

	rephrased, docs, err := s.retrieve(ctx, logger, query, lm, em, history, monitor)
	if err != nil {
		return nil, err
	}

	text, err := s.synthesize(ctx, query, docs, lm, history)
	if err != nil {
		logger.Error("answer synthesis failed", "err", err)
		return nil, err
	}

	answer := &Answer{
		QueryID:        queryID,
		Text:           text,
		Sources:        docs,
		RephrasedQuery: rephrased,
	}
	monitor.Finish(answer)
	logger.Info("search complete", "sources", len(docs))
	return answer, nil
}

func (s *Searcher) retrieve(ctx context.Context, logger *slog.Logger, query string, lm ai.LanguageModel, em ai.Embedder, history []core.Turn, monitor SearchMonitor) (string, []core.ChunkDocument, error) {
	instructions := rephraseInstructions
	if s.skip {
		instructions = rephraseSkipInstructions
	}
	start := time.Now()
	reply, err := lm.Generate(ctx, ai.Prompt{
		Instructions: instructions,
		History:      history,
		Input:        query,
	})
	observe(metrics.StageRephrase, start)
	if err != nil {
		logger.Error("query rephrasing failed", "err", err)
		return "", nil, fmt.Errorf("rephrase query: %w", err)
	}

	rephrased := cleanRephrase(reply)
	if s.skip && strings.EqualFold(rephrased, notNeeded) {
		logger.Debug("rephraser skipped web search")
		monitor.AfterRephrase("")
		return "", []core.ChunkDocument{}, nil
	}
	if rephrased == "" {
		rephrased = strings.TrimSpace(query)
	}
	monitor.AfterRephrase(rephrased)
	logger.Debug("rephrased query", "query", query, "rephrased", rephrased)

	start = time.Now()
	results := s.web.Search(ctx, rephrased)
	observe(metrics.StageWebSearch, start)
	monitor.AfterWebSearch(results)

	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}

	start = time.Now()
	docs := s.fetcher.Fetch(ctx, urls)
	observe(metrics.StageFetch, start)
	monitor.AfterFetch(docs)
	logger.Debug("fetched pages", "urls", len(urls), "chunks", len(docs))

	start = time.Now()
	ranked, err := s.reranker.Rerank(ctx, rephrased, docs, em, s.config)
	observe(metrics.StageRerank, start)
	if err != nil {
		logger.Error("reranking failed", "err", err)
		return "", nil, fmt.Errorf("rerank documents: %w", err)
	}
	monitor.AfterRerank(ranked)

	return rephrased, ranked, nil
}

func (s *Searcher) synthesize(ctx context.Context, query string, docs []core.ChunkDocument, lm ai.LanguageModel, history []core.Turn) (string, error) {
	start := time.Now()
	defer observe(metrics.StageSynthesis, start)

	text, err := lm.Generate(ctx, ai.Prompt{
		Instructions: responseInstructions(buildContext(docs), s.now()),
		History:      history,
		Input:        query,
	})
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	return text, nil
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
