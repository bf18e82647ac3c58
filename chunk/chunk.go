// Package chunk splits page text into overlapping, independently embeddable pieces.
package chunk

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of runes shared by adjacent chunks.
	DefaultChunkOverlap = 200
)

// ErrInvalidChunkSize is returned for a non-positive size or an overlap
// that is negative or not smaller than the size.
var ErrInvalidChunkSize = errors.New("invalid chunk size or overlap")

// separators in preference order: paragraph, line, sentence, word, hard cut.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits text recursively by paragraph, line, sentence and word.
// It is immutable after construction and safe for concurrent use.
type Chunker struct {
	size     int
	overlap  int
	splitter textsplitter.RecursiveCharacter
	logger   *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithChunkSize sets the maximum chunk length in runes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) error {
		c.size = size
		return nil
	}
}

// WithChunkOverlap sets how many runes adjacent chunks share.
func WithChunkOverlap(overlap int) Option {
	return func(c *Chunker) error {
		c.overlap = overlap
		return nil
	}
}

// WithLogger sets a custom logger. Nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "chunker")
		return nil
	}
}

// NewChunker creates a Chunker with DefaultChunkSize and DefaultChunkOverlap
// unless overridden.
func NewChunker(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
		logger:  slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.size <= 0 || c.overlap < 0 || c.overlap >= c.size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkSize, c.size, c.overlap)
	}

	c.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.size),
		textsplitter.WithChunkOverlap(c.overlap),
		textsplitter.WithSeparators(separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
	return c, nil
}

// Split returns the chunks of text in text order. Empty or whitespace-only
// input yields no chunks, and blank chunks are dropped.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	parts, err := c.splitter.SplitText(text)
	if err != nil {
		c.logger.Warn("split failed", "length", len(text), "err", err)
		return []string{}
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
