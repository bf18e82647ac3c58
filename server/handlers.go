package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/poiesic/inquirit/core"
	"github.com/poiesic/inquirit/search"
	"github.com/poiesic/inquirit/storage"
)

// maxRequestBytes bounds a search request body.
const maxRequestBytes = 1 << 20

type turnJSON struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type searchRequest struct {
	Query        string     `json:"query"`
	History      []turnJSON `json:"history"`
	Conversation string     `json:"conversation"`
}

type searchResponse struct {
	QueryID        string               `json:"query_id"`
	Answer         string               `json:"answer"`
	Sources        []core.ChunkDocument `json:"sources"`
	RephrasedQuery string               `json:"rephrased_query"`
}

type conversationJSON struct {
	ID         string    `json:"id"`
	Turns      int       `json:"turns"`
	LastActive time.Time `json:"last_active"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", "query", req.Query, "conversation", req.Conversation, "history", len(req.History))

	answer, err := s.answer(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("search failed", "err", err)
		}
		s.respondError(w, status, err.Error())
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []core.ChunkDocument{}
	}
	s.respondJSON(w, http.StatusOK, searchResponse{
		QueryID:        answer.QueryID,
		Answer:         answer.Text,
		Sources:        sources,
		RephrasedQuery: answer.RephrasedQuery,
	})
}

// answer routes to the stored conversation when one is named, otherwise
// uses the history sent with the request.
func (s *Server) answer(ctx context.Context, req searchRequest) (*search.Answer, error) {
	if req.Conversation != "" {
		return s.answerer.Ask(ctx, req.Conversation, req.Query)
	}
	history, err := decodeHistory(req.History)
	if err != nil {
		return nil, err
	}
	return s.answerer.AnswerWithHistory(ctx, req.Query, history)
}

func decodeHistory(in []turnJSON) ([]core.Turn, error) {
	turns := make([]core.Turn, 0, len(in))
	for i, t := range in {
		var speaker core.SpeakerType
		switch t.Role {
		case "human", "user":
			speaker = core.SpeakerTypeHuman
		case "ai", "assistant":
			speaker = core.SpeakerTypeAI
		default:
			return nil, fmt.Errorf("%w: history[%d]: unknown role %q", core.ErrInvalidInput, i, t.Role)
		}
		turns = append(turns, core.Turn{Speaker: speaker, Content: t.Content, Timestamp: t.Timestamp})
	}
	return turns, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotFound, "conversation history is disabled")
		return
	}
	list, err := s.history.ListConversations(r.Context())
	if err != nil {
		s.logger.Error("list conversations failed", "err", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]conversationJSON, 0, len(list))
	for _, c := range list {
		out = append(out, conversationJSON{ID: c.ID, Turns: c.Turns, LastActive: c.LastActive})
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotFound, "conversation history is disabled")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	turns, err := s.history.GetTurns(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	out := make([]turnJSON, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnJSON{Role: t.Speaker.String(), Content: t.Content, Timestamp: t.Timestamp})
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotFound, "conversation history is disabled")
		return
	}
	if err := s.history.DeleteConversation(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidTurn),
		errors.Is(err, storage.ErrInvalidConversationID):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response failed", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
