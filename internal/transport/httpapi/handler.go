package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"symptombot/internal/bot"
	"symptombot/internal/domain"
	"symptombot/internal/logger"
)

const maxBodyBytes = 64 << 10

type chatRequest struct {
	ChatID  string `json:"chat_id"`
	Command string `json:"command"`
	Text    string `json:"text"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	RequestID string `json:"request_id"`
}

type candidatesResponse struct {
	Query      string                 `json:"query"`
	Candidates []domain.ScoredSymptom `json:"candidates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	msg := domain.Message{
		Source:  "http",
		ChatID:  req.ChatID,
		Command: domain.Command(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(req.Command), "/"))),
		Text:    req.Text,
	}
	if msg.Command == domain.CommandNone {
		msg.Command, msg.Text = bot.ParseCommand(req.Text)
	}

	reply := bot.Respond(r.Context(), s.conv, msg)
	writeJSON(w, http.StatusOK, chatResponse{
		Reply:     reply,
		RequestID: logger.RequestID(r.Context()),
	})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	k := 3
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 50 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "k must be between 1 and 50"})
			return
		}
		k = n
	}
	cands := s.searcher.Candidates(q, k)
	if cands == nil {
		cands = []domain.ScoredSymptom{}
	}
	writeJSON(w, http.StatusOK, candidatesResponse{Query: q, Candidates: cands})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
