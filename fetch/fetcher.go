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


// Package fetch downloads result pages concurrently and turns them into
// chunk documents.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/inquirit/chunk"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/extract"
	"github.com/poiesic/inquirit/metrics"
	"github.com/poiesic/inquirit/retry"
)

const (
	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 30 * time.Second

	// MaxBodyBytes is the default cap on how much of a page body is read.
	MaxBodyBytes = 5 << 20

	// DefaultUserAgent identifies the fetcher to page servers.
	DefaultUserAgent = "Mozilla/5.0 (compatible; inquirit/1.0; +https://github.com/poiesic/inquirit)"
)

// page fetch outcomes recorded in metrics.PageFetches.
const (
	outcomeStatus      = "status"
	outcomeContentType = "content_type"
	outcomePanic       = "panic"
)

// Fetcher turns URLs into chunk documents. Each URL is handled on its own
// worker and failures never affect sibling URLs.
type Fetcher struct {
	pool         *ants.Pool
	httpClient   *http.Client
	chunker      *chunk.Chunker
	userAgent    string
	maxBodyBytes int64
	hostInterval time.Duration
	retry        retry.Policy
	dedupe       bool
	logger       *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithMaxConcurrency caps simultaneous page fetches. Zero or less means no cap.
func WithMaxConcurrency(n int) Option {
	return func(f *Fetcher) error {
		pool, err := ants.NewPool(n)
		if err != nil {
			return fmt.Errorf("failed to create fetch pool: %w", err)
		}
		if f.pool != nil {
			f.pool.Release()
		}
		f.pool = pool
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for page requests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		f.httpClient = client
		return nil
	}
}

// WithChunker sets the chunker applied to each page's text.
func WithChunker(c *chunk.Chunker) Option {
	return func(f *Fetcher) error {
		if c == nil {
			return ErrChunkerRequired
		}
		f.chunker = c
		return nil
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) error {
		f.userAgent = ua
		return nil
	}
}

// WithMaxBodyBytes caps how much of each page is read.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) error {
		if n <= 0 {
			return errors.New("max body bytes must be positive")
		}
		f.maxBodyBytes = n
		return nil
	}
}

// WithHostInterval spaces requests to the same host within one Fetch call.
func WithHostInterval(d time.Duration) Option {
	return func(f *Fetcher) error {
		f.hostInterval = d
		return nil
	}
}

// WithRetry retries each page request with exponential backoff.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(f *Fetcher) error {
		if attempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		f.retry = retry.Policy{Attempts: attempts, BaseDelay: baseDelay}
		return nil
	}
}

// WithDedupe drops chunks whose text already appeared earlier on the same
// page. Off by default: every chunk becomes a document.
func WithDedupe() Option {
	return func(f *Fetcher) error {
		f.dedupe = true
		return nil
	}
}

// WithLogger sets a custom logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		f.logger = logger.With("component", "fetcher")
		return nil
	}
}

// NewFetcher creates a Fetcher with an uncapped worker pool, the default
// chunker and a DefaultTimeout HTTP client.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	chunker, err := chunk.NewChunker()
	if err != nil {
		return nil, err
	}
	f := &Fetcher{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		chunker:      chunker,
		userAgent:    DefaultUserAgent,
		maxBodyBytes: MaxBodyBytes,
		retry:        retry.Policy{Attempts: 1},
		logger:       slog.Default().With("component", "fetcher"),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			if f.pool != nil {
				f.pool.Release()
			}
			return nil, err
		}
	}
	if f.pool == nil {
		pool, err := ants.NewPool(0)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetch pool: %w", err)
		}
		f.pool = pool
	}
	return f, nil
}

// Fetch downloads every URL concurrently and returns the chunks of all pages
// that succeeded. Order across URLs is unspecified; chunks of one URL keep
// text order. It blocks until every URL has been handled.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) []core.ChunkDocument {
	if len(urls) == 0 {
		return []core.ChunkDocument{}
	}

	var limiter *hostLimiter
	if f.hostInterval > 0 {
		limiter = newHostLimiter(f.hostInterval)
	}

	slots := make([][]core.ChunkDocument, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		err := f.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					metrics.PageFetches.WithLabelValues(outcomePanic).Inc()
					f.logger.Error("page processing panicked", "url", u, "panic", r)
				}
			}()
			slots[i] = f.fetchOne(ctx, u, limiter)
		})
		if err != nil {
			wg.Done()
			f.logger.Error("failed to submit page fetch", "url", u, "err", err)
		}
	}
	wg.Wait()

	var total int
	for _, s := range slots {
		total += len(s)
	}
	out := make([]core.ChunkDocument, 0, total)
	for _, s := range slots {
		out = append(out, s...)
	}
	metrics.ChunksProduced.Add(float64(total))
	f.logger.Debug("fetch complete", "urls", len(urls), "chunks", total)
	return out
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL string, limiter *hostLimiter) []core.ChunkDocument {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		metrics.PageFetches.WithLabelValues(metrics.StatusError).Inc()
		f.logger.Warn("skipping page", "url", rawURL, "err", ErrInvalidURL)
		return nil
	}

	var body []byte
	var kind contentKind
	err = f.retry.Do(ctx, func(ctx context.Context) error {
		if err := limiter.wait(ctx, u.Host); err != nil {
			return retry.Permanent(err)
		}
		var err error
		body, kind, err = f.get(ctx, rawURL)
		return err
	})
	if err != nil {
		label := metrics.StatusError
		switch {
		case errors.Is(err, ErrUnexpectedStatus):
			label = outcomeStatus
		case errors.Is(err, ErrUnsupportedContentType):
			label = outcomeContentType
		}
		metrics.PageFetches.WithLabelValues(label).Inc()
		f.logger.Warn("failed to fetch page", "url", rawURL, "err", err)
		return nil
	}

	var page extract.Page
	switch kind {
	case kindPDF:
		page, err = extract.PDF(body, rawURL)
		if err != nil {
			metrics.PageFetches.WithLabelValues(metrics.StatusError).Inc()
			f.logger.Warn("failed to read pdf", "url", rawURL, "err", err)
			return nil
		}
	case kindPlain:
		page = extract.PlainText(string(body), rawURL)
	default:
		page = extract.Extract(string(body), rawURL)
	}
	metrics.PageFetches.WithLabelValues(metrics.StatusOK).Inc()

	chunks := f.chunker.Split(page.Text)
	docs := make([]core.ChunkDocument, 0, len(chunks))
	var seen map[core.ID]struct{}
	if f.dedupe {
		seen = make(map[core.ID]struct{}, len(chunks))
	}
	for _, c := range chunks {
		if seen != nil {
			id := core.IDFromContent(c)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		doc := core.ChunkDocument{
			Content:  c,
			Metadata: core.DocumentMetadata{Title: page.Title, URL: rawURL},
		}
		if core.ValidateChunkDocument(&doc) == nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

type contentKind int

const (
	kindHTML contentKind = iota
	kindPlain
	kindPDF
)

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, contentKind, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, retry.Permanent(err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,application/pdf;q=0.8,*/*;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, 0, retry.Permanent(err)
		}
		return nil, 0, err
	}

	ct := resp.Header.Get("Content-Type")
	kind, ok := classify(ct)
	if !ok {
		return nil, 0, retry.Permanent(fmt.Errorf("%w: %s", ErrUnsupportedContentType, ct))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %w", core.ErrTransport, err)
	}
	return data, kind, nil
}

// classify accepts text/*, XHTML and PDF. A missing header is treated as HTML.
func classify(contentType string) (contentKind, bool) {
	if contentType == "" {
		return kindHTML, true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return 0, false
	}
	switch {
	case mediaType == "text/plain":
		return kindPlain, true
	case strings.HasPrefix(mediaType, "text/"), mediaType == "application/xhtml+xml":
		return kindHTML, true
	case mediaType == "application/pdf":
		return kindPDF, true
	default:
		return 0, false
	}
}

// Release stops the worker pool. The Fetcher must not be used afterwards.
func (f *Fetcher) Release() {
	if f.pool != nil {
		f.pool.Release()
	}
}
