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


// Package websearch queries a SearxNG-compatible metasearch endpoint.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/metrics"
	"github.com/poiesic/inquirit/retry"
)

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 15 * time.Second

// ErrBaseURLRequired is logged when a search is attempted without an endpoint.
var ErrBaseURLRequired = errors.New("search endpoint base URL is required")

// Result is one hit returned by the search endpoint. Only URL is needed by
// the pipeline; the rest is carried for display.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Engine  string `json:"engine"`
}

type response struct {
	Results     []Result `json:"results"`
	Suggestions []string `json:"suggestions"`
}

// Client talks to a SearxNG JSON API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	retry      retry.Policy
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithLanguage sets the language parameter sent with every query. Default: "en".
func WithLanguage(lang string) Option {
	return func(c *Client) error {
		c.language = lang
		return nil
	}
}

// WithHTTPClient replaces the HTTP client, e.g. to change the timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithRetry retries failed requests with exponential backoff.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) error {
		if attempts <= 0 {
			return retry.ErrInvalidMaxAttempts
		}
		c.retry = retry.Policy{Attempts: attempts, BaseDelay: baseDelay}
		return nil
	}
}

// WithLogger sets a custom logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "websearch")
		return nil
	}
}

// NewClient creates a Client for the endpoint at baseURL, e.g.
// "http://localhost:8080". An empty baseURL is accepted; every search
// against it fails softly.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		language:   "en",
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry:      retry.Policy{Attempts: 1},
		logger:     slog.Default().With("component", "websearch"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Search runs query and returns the endpoint's results in rank order.
// Failures of any kind are logged and produce an empty slice. Results
// without a URL are dropped and repeated URLs keep their first occurrence.
// Titles and snippets come back as plain text.
func (c *Client) Search(ctx context.Context, query string) []Result {
	var body response
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		body, err = c.do(ctx, query)
		return err
	})
	if err != nil {
		metrics.WebSearchRequests.WithLabelValues(metrics.StatusError).Inc()
		c.logger.Warn("web search failed", "query", query, "err", err)
		return []Result{}
	}
	metrics.WebSearchRequests.WithLabelValues(metrics.StatusOK).Inc()

	seen := make(map[string]struct{}, len(body.Results))
	out := make([]Result, 0, len(body.Results))
	for _, r := range body.Results {
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}
		r.Title = stripTags(r.Title)
		r.Content = stripTags(r.Content)
		out = append(out, r)
	}
	c.logger.Debug("web search complete", "query", query, "results", len(out), "suggestions", len(body.Suggestions))
	return out
}

func (c *Client) do(ctx context.Context, query string) (response, error) {
	if c.baseURL == "" {
		return response{}, retry.Permanent(ErrBaseURLRequired)
	}
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return response{}, retry.Permanent(fmt.Errorf("parse base url: %w", err))
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	if c.language != "" {
		q.Set("language", c.language)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return response{}, retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%w: %w", core.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("%w: unexpected status %d", core.ErrTransport, resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return response{}, retry.Permanent(err)
		}
		return response{}, err
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return response{}, retry.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return body, nil
}
