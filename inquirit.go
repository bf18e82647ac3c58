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


// Package inquirit answers questions from the live web. It rephrases a
// question, searches, fetches and chunks the result pages, keeps the chunks
// closest to the question, and has a language model write a cited answer.
package inquirit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/inquirit/ai"
	"github.com/poiesic/inquirit/ai/openai"
	"github.com/poiesic/inquirit/chunk"
	"github.com/poiesic/inquirit/config"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/fetch"
	"github.com/poiesic/inquirit/search"
	"github.com/poiesic/inquirit/storage"
	"github.com/poiesic/inquirit/storage/badger"
	"github.com/poiesic/inquirit/websearch"
)

const retryBaseDelay = 500 * time.Millisecond

var (
	// ErrEmptyQuery is returned when a question is blank.
	ErrEmptyQuery = fmt.Errorf("%w: query cannot be empty", core.ErrInvalidInput)

	// ErrHistoryDisabled is returned by history operations when no store is configured.
	ErrHistoryDisabled = errors.New("conversation history is disabled")
)

// Assistant wires a model provider, the search pipeline and the optional
// conversation store together.
type Assistant struct {
	provider     ai.AIProvider
	searcher     *search.Searcher
	history      storage.ConversationRepository
	historyTurns int
	monitor      search.SearchMonitor
	closers      []func() error
	logger       *slog.Logger
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	config    *config.Config
	provider  ai.AIProvider
	web       search.WebSearcher
	fetcher   search.PageFetcher
	history   storage.ConversationRepository
	noHistory bool
	monitor   search.SearchMonitor
	logger    *slog.Logger
}

// WithConfig supplies the application configuration. Default: config.Default().
func WithConfig(cfg *config.Config) AssistantOption {
	return func(o *assistantOptions) {
		o.config = cfg
	}
}

// WithProvider replaces the OpenAI-compatible provider built from the config.
// The Assistant takes ownership and closes it.
func WithProvider(p ai.AIProvider) AssistantOption {
	return func(o *assistantOptions) {
		o.provider = p
	}
}

// WithWebSearcher replaces the SearxNG client built from the config.
func WithWebSearcher(w search.WebSearcher) AssistantOption {
	return func(o *assistantOptions) {
		o.web = w
	}
}

// WithPageFetcher replaces the page fetcher built from the config.
func WithPageFetcher(f search.PageFetcher) AssistantOption {
	return func(o *assistantOptions) {
		o.fetcher = f
	}
}

// WithHistory uses repo for conversation history instead of opening the
// configured badger store. The Assistant takes ownership and closes it.
func WithHistory(repo storage.ConversationRepository) AssistantOption {
	return func(o *assistantOptions) {
		o.history = repo
	}
}

// WithoutHistory disables conversation history regardless of the config.
func WithoutHistory() AssistantOption {
	return func(o *assistantOptions) {
		o.noHistory = true
	}
}

// WithMonitor observes every search the Assistant runs.
func WithMonitor(m search.SearchMonitor) AssistantOption {
	return func(o *assistantOptions) {
		o.monitor = m
	}
}

// WithLogger sets a custom logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) AssistantOption {
	return func(o *assistantOptions) {
		o.logger = logger
	}
}

// NewAssistant builds an Assistant. Collaborators not supplied through
// options are constructed from the configuration.
func NewAssistant(opts ...AssistantOption) (*Assistant, error) {
	options := &assistantOptions{}
	for _, opt := range opts {
		opt(options)
	}
	cfg := options.config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Assistant{
		historyTurns: cfg.History.Turns,
		monitor:      options.monitor,
		logger:       logger.With("component", "assistant"),
	}

	searchCfg, err := cfg.SearchConfig()
	if err != nil {
		return nil, err
	}

	web := options.web
	if web == nil {
		web, err = websearch.NewClient(cfg.Searxng.URL,
			websearch.WithLanguage(cfg.Searxng.Language),
			websearch.WithHTTPClient(&http.Client{Timeout: cfg.Searxng.Timeout}),
			websearch.WithRetry(cfg.Searxng.Retries+1, retryBaseDelay),
			websearch.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
	}

	fetcher := options.fetcher
	if fetcher == nil {
		f, err := newFetcher(cfg.Fetch, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			f.Release()
			return nil
		})
		fetcher = f
	}

	a.provider = options.provider
	if a.provider == nil {
		a.provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	a.closers = append(a.closers, a.provider.Close)

	searchOpts := []search.Option{
		search.WithSearchConfig(searchCfg),
		search.WithLogger(logger),
	}
	if cfg.Search.SkipDecision {
		searchOpts = append(searchOpts, search.WithSkipDecision())
	}
	a.searcher, err = search.NewSearcher(web, fetcher, searchOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	switch {
	case options.noHistory:
		if options.history != nil {
			a.closers = append(a.closers, options.history.Close)
		}
	case options.history != nil:
		a.history = options.history
	case cfg.History.EnabledOrDefault():
		a.history, err = badger.OpenRepository(cfg.History.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open history at %s: %w", cfg.History.Path, err)
		}
	}
	if a.history != nil {
		a.closers = append(a.closers, a.history.Close)
	}

	return a, nil
}

func newFetcher(cfg config.FetchConfig, logger *slog.Logger) (*fetch.Fetcher, error) {
	chunker, err := chunk.NewChunker(
		chunk.WithChunkSize(cfg.ChunkSize),
		chunk.WithChunkOverlap(cfg.ChunkOverlap),
		chunk.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	opts := []fetch.Option{
		fetch.WithChunker(chunker),
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodyBytes(cfg.MaxBodyBytes),
		fetch.WithHostInterval(cfg.HostInterval),
		fetch.WithRetry(cfg.Retries+1, retryBaseDelay),
		fetch.WithLogger(logger),
	}
	if cfg.MaxConcurrency > 0 {
		opts = append(opts, fetch.WithMaxConcurrency(cfg.MaxConcurrency))
	}
	if cfg.Dedupe {
		opts = append(opts, fetch.WithDedupe())
	}
	return fetch.NewFetcher(opts...)
}

// Close releases the provider, the fetch pool and the history store.
// The first error is returned; later closers still run.
func (a *Assistant) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("error closing assistant resource", "err", err)
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	return first
}

// Ask answers query within a conversation. Prior turns of the conversation
// are fed to the rephrase and answer steps, and the question and answer are
// appended afterwards. An empty conversation name runs without history.
func (a *Assistant) Ask(ctx context.Context, conversation, query string) (*search.Answer, error) {
	var history []core.Turn
	useHistory := conversation != "" && a.history != nil
	if useHistory {
		var err error
		history, err = a.history.GetTurns(ctx, conversation, a.historyTurns)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
	}

	asked := core.HumanTurn(query)
	answer, err := a.AnswerWithHistory(ctx, query, history)
	if err != nil {
		return nil, err
	}

	if useHistory {
		turns := []core.Turn{asked}
		if strings.TrimSpace(answer.Text) != "" {
			turns = append(turns, core.AITurn(answer.Text))
		}
		if err := a.history.AddTurns(ctx, conversation, turns...); err != nil {
			return answer, fmt.Errorf("save history: %w", err)
		}
	}
	return answer, nil
}

// AnswerWithHistory answers query with caller-supplied history and stores nothing.
func (a *Assistant) AnswerWithHistory(ctx context.Context, query string, history []core.Turn) (*search.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	return a.searcher.AnswerWithMonitor(ctx, query,
		a.provider.LanguageModel(), a.provider.Embedder(), history, a.monitor)
}

// History returns the conversation store, or ErrHistoryDisabled.
func (a *Assistant) History() (storage.ConversationRepository, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history, nil
}
