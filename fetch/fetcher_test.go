package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/inquirit/chunk"
	"github.com/poiesic/inquirit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sixWords splits into exactly three chunks with a 20-rune, zero-overlap chunker.
const sixWords = "aaaaaaaaa bbbbbbbbb ccccccccc ddddddddd eeeeeeeee fffffffff"

func smallChunker(t *testing.T) *chunk.Chunker {
	t.Helper()
	c, err := chunk.NewChunker(chunk.WithChunkSize(20), chunk.WithChunkOverlap(0))
	require.NoError(t, err)
	return c
}

func newTestFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	f, err := NewFetcher(append([]Option{WithChunker(smallChunker(t))}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(f.Release)
	return f
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/good", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>Good Page</title></head><body><p>" + sixWords + "</p></body></html>"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/bad.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("not really a pdf"))
	})
	mux.HandleFunc("/repeat", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("aaaaaaaaa bbbbbbbbb aaaaaaaaa bbbbbbbbb ccccccccc"))
	})
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("use <script>\n  tags   <head>"))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><script>only()</script></body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func contents(docs []core.ChunkDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}

func TestFetch_FailedPageDoesNotAffectSiblings(t *testing.T) {
	srv := pageServer(t)
	f := newTestFetcher(t)

	docs := f.Fetch(context.Background(), []string{srv.URL + "/good", srv.URL + "/broken"})

	require.Len(t, docs, 3)
	assert.Equal(t, []string{"aaaaaaaaa bbbbbbbbb", "ccccccccc ddddddddd", "eeeeeeeee fffffffff"}, contents(docs))
	for _, d := range docs {
		assert.Equal(t, "Good Page", d.Metadata.Title)
		assert.Equal(t, srv.URL+"/good", d.Metadata.URL)
	}
}

func TestFetch_RejectedPages(t *testing.T) {
	srv := pageServer(t)
	f := newTestFetcher(t)

	urls := []string{
		srv.URL + "/missing",
		srv.URL + "/image",
		srv.URL + "/empty",
		srv.URL + "/bad.pdf",
		"not a url",
		"ftp://example.test/file",
		"",
	}
	docs := f.Fetch(context.Background(), urls)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestFetch_OneDocumentPerChunk(t *testing.T) {
	srv := pageServer(t)
	f := newTestFetcher(t)

	docs := f.Fetch(context.Background(), []string{srv.URL + "/repeat"})

	assert.Equal(t, []string{"aaaaaaaaa bbbbbbbbb", "aaaaaaaaa bbbbbbbbb", "ccccccccc"}, contents(docs))
}

func TestFetch_DedupeDropsRepeatedChunks(t *testing.T) {
	srv := pageServer(t)
	f := newTestFetcher(t, WithDedupe())

	docs := f.Fetch(context.Background(), []string{srv.URL + "/repeat"})

	assert.Equal(t, []string{"aaaaaaaaa bbbbbbbbb", "ccccccccc"}, contents(docs))
}

func TestFetch_PlainTextKeepsAngleBrackets(t *testing.T) {
	srv := pageServer(t)
	c, err := chunk.NewChunker(chunk.WithChunkSize(100), chunk.WithChunkOverlap(0))
	require.NoError(t, err)
	f := newTestFetcher(t, WithChunker(c))

	docs := f.Fetch(context.Background(), []string{srv.URL + "/notes.txt"})

	require.Len(t, docs, 1)
	assert.Equal(t, "use <script> tags <head>", docs[0].Content)
	assert.Equal(t, srv.URL+"/notes.txt", docs[0].Metadata.Title)
}

func TestFetch_Empty(t *testing.T) {
	f := newTestFetcher(t)
	docs := f.Fetch(context.Background(), nil)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithUserAgent("test-agent/1"))
	docs := f.Fetch(context.Background(), []string{srv.URL})

	require.Len(t, docs, 1)
	assert.Equal(t, "test-agent/1", ua.Load())
	assert.Equal(t, srv.URL, docs[0].Metadata.Title)
}

func TestFetch_ConcurrentByDefault(t *testing.T) {
	const n = 5
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	var once sync.Once

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		if cur == n {
			once.Do(func() { close(release) })
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		inFlight.Add(-1)
		_, _ = w.Write([]byte("page"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	urls := make([]string, n)
	for i := range urls {
		urls[i] = srv.URL + "/p" + strings.Repeat("x", i)
	}

	docs := f.Fetch(context.Background(), urls)
	assert.Len(t, docs, n)
	assert.Equal(t, int32(n), peak.Load())
}

func TestFetch_MaxConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		_, _ = w.Write([]byte("page"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithMaxConcurrency(2))
	urls := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c", srv.URL + "/d", srv.URL + "/e"}

	docs := f.Fetch(context.Background(), urls)
	assert.Len(t, docs, 5)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFetch_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("keep " + strings.Repeat("z", 100)))
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithMaxBodyBytes(4))
	docs := f.Fetch(context.Background(), []string{srv.URL})

	require.Len(t, docs, 1)
	assert.Equal(t, "keep", docs[0].Content)
}

func TestFetch_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithRetry(2, time.Millisecond))
	docs := f.Fetch(context.Background(), []string{srv.URL})

	require.Len(t, docs, 1)
	assert.Equal(t, int32(2), calls.Load())
}

type panicTransport struct{}

func (panicTransport) RoundTrip(*http.Request) (*http.Response, error) {
	panic("transport exploded")
}

func TestFetch_PanicIsContained(t *testing.T) {
	f := newTestFetcher(t, WithHTTPClient(&http.Client{Transport: panicTransport{}}))

	var docs []core.ChunkDocument
	assert.NotPanics(t, func() {
		docs = f.Fetch(context.Background(), []string{"https://a.test", "https://b.test"})
	})
	assert.Empty(t, docs)
}

func TestFetch_HostInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("page"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithHostInterval(30*time.Millisecond))
	start := time.Now()
	docs := f.Fetch(context.Background(), []string{srv.URL + "/1", srv.URL + "/2", srv.URL + "/3"})

	assert.Len(t, docs, 3)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestNewFetcher_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"nil chunker", WithChunker(nil)},
		{"nil http client", WithHTTPClient(nil)},
		{"zero body cap", WithMaxBodyBytes(0)},
		{"zero retry attempts", WithRetry(0, time.Millisecond)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFetcher(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		want        contentKind
		ok          bool
	}{
		{"", kindHTML, true},
		{"text/html; charset=utf-8", kindHTML, true},
		{"text/plain", kindPlain, true},
		{"text/plain; charset=utf-8", kindPlain, true},
		{"application/xhtml+xml", kindHTML, true},
		{"application/pdf", kindPDF, true},
		{"image/png", 0, false},
		{"application/json", 0, false},
		{";;;", 0, false},
	}
	for _, tt := range tests {
		kind, ok := classify(tt.contentType)
		assert.Equal(t, tt.ok, ok, tt.contentType)
		if tt.ok {
			assert.Equal(t, tt.want, kind, tt.contentType)
		}
	}
}
