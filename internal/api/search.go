package api

import (
	"encoding/json"
	"net/http"

	"github.com/ragbase/ragbase/internal/ai"
	"github.com/ragbase/ragbase/internal/search"
)

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	hits, err := s.deps.Searcher.Search(r.Context(), r.PathValue("project"), actor(r), req.Query, req.K)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":  hits,
		"count": len(hits),
	})
}

type answerRequest struct {
	Query    string           `json:"query"`
	Messages []ai.ChatMessage `json:"messages"`
	K        int              `json:"k"`
}

// handleAnswer accepts either a plain query or a chat conversation; a
// conversation is reduced to its last user-authored message.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	query := req.Query
	if query == "" && len(req.Messages) > 0 {
		query = search.LastUserMessage(req.Messages)
	}

	ans, err := s.deps.Answerer.Answer(r.Context(), r.PathValue("project"), actor(r), query, req.K)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

type rephraseRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (s *Server) handleRephrase(w http.ResponseWriter, r *http.Request) {
	var req rephraseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	rephrased, err := s.deps.Answerer.Rephrase(r.Context(), req.Question, req.Answer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rephrased": rephrased})
}

func (s *Server) handleQueryLog(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}

	queries, err := s.deps.Documents.ListSearchQueries(r.Context(), r.PathValue("project"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queries": queries,
		"count":   len(queries),
	})
}
