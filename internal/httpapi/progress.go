package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-lingo/internal/realtime"
)

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Ledger.CreateProfile(r.Context(), learnerID(r))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p, err := s.Ledger.ReadProfile(r.Context(), learnerID(r))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleCompleteChapter(w http.ResponseWriter, r *http.Request) {
	res, err := s.Ledger.AwardChapterCompletion(r.Context(), learnerID(r), r.PathValue("path"), r.PathValue("chapterID"))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompleteVideo(w http.ResponseWriter, r *http.Request) {
	res, err := s.Ledger.AwardVideoCompletion(r.Context(), learnerID(r), r.PathValue("videoID"))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleStream opens the realtime stats socket, starting with the current
// profile.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := learnerID(r)
	p, err := s.Ledger.ReadProfile(r.Context(), id)
	if err != nil {
		slog.Warn("stats snapshot unavailable", "learner_id", id, "error", err)
		s.Hub.Serve(w, r, id)
		return
	}
	s.Hub.Serve(w, r, id, realtime.Message{Event: realtime.EventStatsUpdated, Data: p})
}
