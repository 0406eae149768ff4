package onglet

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterHTTP mounts the service API on a chi router.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/refresh", s.handleRefresh)
	r.Get("/snapshot", s.handleSnapshot)
	r.Post("/ask", s.handleAsk)
	r.Post("/navigate", s.handleNavigate)
	r.Get("/messages", s.handleMessages)
	r.Delete("/messages", s.handleClearMessages)
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Service) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	if snap == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no snapshot published yet"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Service) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question    string `json:"question"`
		KeywordOnly bool   `json:"keyword_only"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}
	msg, err := s.Ask(r.Context(), req.Question, req.KeywordOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Service) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL   string `json:"url"`
		TabID string `json:"tab_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.URL == "" && req.TabID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("url or tab_id is required"))
		return
	}
	id, err := s.Navigate(r.Context(), req.URL, req.TabID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tab_id": id})
}

func (s *Service) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.Messages(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Service) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.ClearMessages(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
