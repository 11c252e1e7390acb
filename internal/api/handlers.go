// File path: internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/pipeline"
)

type answerRequest struct {
	Question  string `json:"question"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question required"))
		return
	}
	result, err := s.engine.Answer(r.Context(), req.Question, pipeline.AnswerOptions{RequestID: req.RequestID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type askRequest struct {
	Question string `json:"question"`
	Lang     string `json:"lang"`
}

// handleAsk runs the retrieval+refinement tier. Provider failures surface as
// a generic message: the admin console must never render raw provider errors.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question required"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.askTimeout)
	defer cancel()
	result, err := s.engine.Ask(ctx, req.Question, req.Lang)
	if err != nil {
		common.Logger().Error("api: ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("failed to process question"))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing q parameter"))
		return
	}
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	hits, err := s.index.Search(query, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, searchResult{
			ID:      hit.Doc.ID,
			Title:   hit.Doc.Title,
			Slug:    hit.Doc.Slug,
			Score:   hit.Score,
			Snippet: hit.Snippet,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

type searchResult struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Slug    string  `json:"slug"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// handleReindex reloads the FAQ corpus and rebuilds the KB index atomically;
// in-flight answers keep reading the previous index.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reindex(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reindexed"})
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	s.engine.Invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("history not configured"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := common.LogEntries()
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
