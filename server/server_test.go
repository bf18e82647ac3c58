package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/inquirit/config"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/search"
	"github.com/poiesic/inquirit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnswerer struct {
	askConversation string
	history         []core.Turn
	err             error
	delay           time.Duration
}

func (f *fakeAnswerer) answer(ctx context.Context, query string) (*search.Answer, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrInvalidInput
	}
	return &search.Answer{
		QueryID: "q-1",
		Text:    "answer to " + query + " [1]",
		Sources: []core.ChunkDocument{{
			Content:  "chunk",
			Metadata: core.DocumentMetadata{Title: "Source", URL: "https://example.com"},
		}},
		RephrasedQuery: "rephrased " + query,
	}, nil
}

func (f *fakeAnswerer) Ask(ctx context.Context, conversation, query string) (*search.Answer, error) {
	f.askConversation = conversation
	return f.answer(ctx, query)
}

func (f *fakeAnswerer) AnswerWithHistory(ctx context.Context, query string, history []core.Turn) (*search.Answer, error) {
	f.history = history
	return f.answer(ctx, query)
}

func newTestServer(t *testing.T, answerer Answerer, opts ...Option) http.Handler {
	t.Helper()
	s, err := NewServer(answerer, config.ServerConfig{Host: "localhost", Port: 3001, RequestTimeout: time.Second}, opts...)
	require.NoError(t, err)
	return s.Handler()
}

func postSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	answerer := &fakeAnswerer{}
	h := newTestServer(t, answerer)

	rec := postSearch(t, h, `{"query":"what is go","history":[{"role":"human","content":"hi"},{"role":"assistant","content":"hello"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "answer to what is go [1]", resp.Answer)
	assert.Equal(t, "rephrased what is go", resp.RephrasedQuery)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "https://example.com", resp.Sources[0].Metadata.URL)

	require.Len(t, answerer.history, 2)
	assert.Equal(t, core.SpeakerTypeHuman, answerer.history[0].Speaker)
	assert.Equal(t, core.SpeakerTypeAI, answerer.history[1].Speaker)
	assert.Empty(t, answerer.askConversation)
}

func TestHandleSearch_Conversation(t *testing.T) {
	answerer := &fakeAnswerer{}
	h := newTestServer(t, answerer)

	rec := postSearch(t, h, `{"query":"q","conversation":"research"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "research", answerer.askConversation)
}

func TestHandleSearch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		answerer *fakeAnswerer
		body     string
		status   int
	}{
		{"malformed json", &fakeAnswerer{}, `{"query":`, http.StatusBadRequest},
		{"empty query", &fakeAnswerer{}, `{"query":"  "}`, http.StatusBadRequest},
		{"unknown role", &fakeAnswerer{}, `{"query":"q","history":[{"role":"robot","content":"x"}]}`, http.StatusBadRequest},
		{"pipeline failure", &fakeAnswerer{err: core.ErrTransport}, `{"query":"q"}`, http.StatusInternalServerError},
		{"timeout", &fakeAnswerer{delay: 5 * time.Second}, `{"query":"q"}`, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postSearch(t, newTestServer(t, tt.answerer), tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, &fakeAnswerer{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inquirit_http_requests_total")
}

func TestConversationEndpoints(t *testing.T) {
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.AddTurns(context.Background(), "research",
		core.HumanTurn("question"), core.AITurn("answer")))

	h := newTestServer(t, &fakeAnswerer{}, WithHistory(repo))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []conversationJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "research", list[0].ID)
	assert.Equal(t, 2, list[0].Turns)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/research?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var turns []turnJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turns))
	require.Len(t, turns, 1)
	assert.Equal(t, "ai", turns[0].Role)
	assert.Equal(t, "answer", turns[0].Content)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/research?limit=-2", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/research", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/research", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversationEndpoints_Disabled(t *testing.T) {
	h := newTestServer(t, &fakeAnswerer{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServer_RequiresAnswerer(t *testing.T) {
	_, err := NewServer(nil, config.ServerConfig{})
	assert.ErrorIs(t, err, ErrAnswererRequired)
}
