package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	leaderboardSheet = "Learners"
	defaultBoardSize = 100
)

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.Videos.List(r.Context())
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, videos)
}

type addVideoRequest struct {
	Title      string `json:"title"`
	YouTubeURL string `json:"youtubeUrl"`
}

func (s *Server) handleAddVideo(w http.ResponseWriter, r *http.Request) {
	var req addVideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err, http.StatusBadRequest)
		return
	}
	v, err := s.Videos.Add(r.Context(), req.Title, req.YouTubeURL)
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := s.Videos.Delete(r.Context(), r.PathValue("id")); err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	all, err := s.Prompts.All(r.Context())
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, all)
}

type putPromptRequest struct {
	Template string `json:"template"`
}

func (s *Server) handlePutPrompt(w http.ResponseWriter, r *http.Request) {
	var req putPromptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err, http.StatusBadRequest)
		return
	}
	name := r.PathValue("name")
	if err := s.Prompts.Update(r.Context(), name, req.Template); err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"name": name, "template": req.Template})
}

func (s *Server) handleLearners(w http.ResponseWriter, r *http.Request) {
	board, err := s.Ledger.Leaderboard(r.Context(), boardLimit(r))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

// handleLearnersExport writes the leaderboard as an XLSX workbook.
func (s *Server) handleLearnersExport(w http.ResponseWriter, r *http.Request) {
	board, err := s.Ledger.Leaderboard(r.Context(), boardLimit(r))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		fail(w, r, fmt.Errorf("name sheet: %w", err), http.StatusInternalServerError)
		return
	}
	header := []any{"Rank", "Learner", "Points", "Level", "Streak", "Chapters", "Videos", "Last completed"}
	if err := f.SetSheetRow(leaderboardSheet, "A1", &header); err != nil {
		fail(w, r, fmt.Errorf("write header: %w", err), http.StatusInternalServerError)
		return
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(leaderboardSheet, 1, 1, bold)
	}

	for i, p := range board {
		chapters := 0
		for _, ids := range p.CompletedChapters {
			chapters += len(ids)
		}
		last := ""
		if p.LastCompletedAt != nil {
			last = p.LastCompletedAt.UTC().Format(time.RFC3339)
		}
		row := []any{i + 1, p.LearnerID, p.Points, p.Level, p.DailyStreak, chapters, len(p.CompletedVideos), last}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			fail(w, r, err, http.StatusInternalServerError)
			return
		}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			fail(w, r, fmt.Errorf("write row: %w", err), http.StatusInternalServerError)
			return
		}
	}
	_ = f.SetColWidth(leaderboardSheet, "B", "B", 36)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="learners.xlsx"`)
	if err := f.Write(w); err != nil {
		// Headers are already sent.
		slog.Error("write workbook failed", "error", err)
	}
}

func boardLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultBoardSize
	}
	return n
}
