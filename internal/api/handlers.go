package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/coursechat/coursechat/internal/generation"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/tools"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse is the body of a successful query.
type QueryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

// SessionResponse is the body of POST /api/sessions.
type SessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	ans, err := s.system.Answer(r.Context(), req.SessionID, req.Query)
	if err != nil {
		s.logger.Error("query failed", "error", err, "session_id", req.SessionID)
		if errors.Is(err, generation.ErrGeneration) {
			writeError(w, http.StatusBadGateway, "generation_failed",
				"Failed to generate a response. Please try again.")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error",
			"Failed to process the query.")
		return
	}

	sources := ans.Sources
	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{
		Answer:    ans.Text,
		Sources:   sources,
		SessionID: ans.SessionID,
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.system.Analytics())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id := s.system.Sessions().Create()
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.system.Sessions().Delete(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "unknown session")
			return
		}
		s.logger.Error("deleting session", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to delete session.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"courses": s.system.Analytics().TotalCourses,
	})
}
