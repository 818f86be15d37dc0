package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/p-n-ai/pai-lingo/internal/syllabus"
)

func (s *Server) handleLearningPath(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.Projector.LearningPath(r.Context(), learnerID(r), r.PathValue("path"))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.Projector.Tree(r.Context(), learnerID(r), r.PathValue("path"))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	view, err := s.Projector.Lesson(r.Context(), r.PathValue("path"), r.PathValue("chapterID"))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleListSyllabi(w http.ResponseWriter, r *http.Request) {
	paths, err := s.Syllabi.Paths(r.Context())
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"paths": paths})
}

func (s *Server) handleGetSyllabus(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Syllabi.Get(r.Context(), r.PathValue("path"))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// handlePutSyllabus replaces a whole document after schema validation.
func (s *Server) handlePutSyllabus(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, err, http.StatusBadRequest)
		return
	}
	doc, err := syllabus.ParseValid(body)
	if err != nil {
		fail(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.Syllabi.Put(r.Context(), r.PathValue("path"), doc); err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// handlePutChapter upserts one chapter of a flat document. The body is
// validated as a single-entry flat document.
func (s *Server) handlePutChapter(w http.ResponseWriter, r *http.Request) {
	chapterID := r.PathValue("chapterID")
	if chapterID == "chapters" {
		fail(w, r, fmt.Errorf("%w: reserved chapter id %q", syllabus.ErrInvalidDocument, chapterID), http.StatusBadRequest)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		fail(w, r, err, http.StatusBadRequest)
		return
	}
	wrapped, err := json.Marshal(map[string]json.RawMessage{chapterID: body})
	if err != nil {
		fail(w, r, fmt.Errorf("%w: %v", errBadJSON, err), http.StatusBadRequest)
		return
	}
	doc, err := syllabus.ParseValid(wrapped)
	if err != nil {
		fail(w, r, err, http.StatusBadRequest)
		return
	}
	n, ok := doc.Flat[chapterID]
	if !ok {
		fail(w, r, fmt.Errorf("%w: chapter must be an object", syllabus.ErrInvalidDocument), http.StatusBadRequest)
		return
	}
	if err := s.Syllabi.SaveChapter(r.Context(), r.PathValue("path"), chapterID, n); err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	n.ID = chapterID
	n.Children = nil
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteChapter(w http.ResponseWriter, r *http.Request) {
	if err := s.Syllabi.DeleteChapter(r.Context(), r.PathValue("path"), r.PathValue("chapterID")); err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
