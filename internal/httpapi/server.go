// Package httpapi exposes the progression service over JSON HTTP.
package httpapi

import (
	"net/http"

	"github.com/p-n-ai/pai-lingo/internal/ai"
	"github.com/p-n-ai/pai-lingo/internal/content"
	"github.com/p-n-ai/pai-lingo/internal/keyvault"
	"github.com/p-n-ai/pai-lingo/internal/progress"
	"github.com/p-n-ai/pai-lingo/internal/prompts"
	"github.com/p-n-ai/pai-lingo/internal/realtime"
	"github.com/p-n-ai/pai-lingo/internal/syllabus"
)

// Deps holds the components the handlers call into.
type Deps struct {
	Auth      *Authenticator
	Ledger    *progress.Ledger
	Syllabi   syllabus.Store
	Projector *syllabus.Projector
	Videos    *content.Catalogue
	Prompts   *prompts.Service
	Vault     *keyvault.Vault
	Router    *ai.Router
	Tools     *ai.Toolkit
	Hub       *realtime.Hub
}

// Server serves the API.
type Server struct {
	Deps
}

// New creates a server.
func New(deps Deps) *Server {
	return &Server{Deps: deps}
}

// Register mounts every API route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	// Public.
	mux.HandleFunc("GET /api/videos", s.handleListVideos)
	mux.HandleFunc("GET /api/paths/{path}/lessons/{chapterID}", s.handleLesson)
	mux.HandleFunc("GET /api/ai/tools", s.handleListTools)

	// Learner.
	mux.Handle("POST /api/me/profile", s.learner(s.handleCreateProfile))
	mux.Handle("GET /api/me/stats", s.learner(s.handleStats))
	mux.Handle("POST /api/me/chapters/{path}/{chapterID}/complete", s.learner(s.handleCompleteChapter))
	mux.Handle("POST /api/me/videos/{videoID}/complete", s.learner(s.handleCompleteVideo))
	mux.Handle("GET /api/me/paths/{path}", s.learner(s.handleLearningPath))
	mux.Handle("GET /api/me/paths/{path}/tree", s.learner(s.handleTree))
	mux.Handle("GET /api/me/keys", s.learner(s.handleGetKeys))
	mux.Handle("PUT /api/me/keys", s.learner(s.handlePutKeys))
	mux.Handle("GET /api/me/ws", s.learner(s.handleStream))
	mux.Handle("POST /api/ai/generate", s.learner(s.handleGenerate))
	mux.Handle("POST /api/ai/tools/{tool}", s.learner(s.handleRunTool))

	// Admin.
	mux.Handle("GET /api/admin/syllabus", s.admin(s.handleListSyllabi))
	mux.Handle("GET /api/admin/syllabus/{path}", s.admin(s.handleGetSyllabus))
	mux.Handle("PUT /api/admin/syllabus/{path}", s.admin(s.handlePutSyllabus))
	mux.Handle("PUT /api/admin/syllabus/{path}/{chapterID}", s.admin(s.handlePutChapter))
	mux.Handle("DELETE /api/admin/syllabus/{path}/{chapterID}", s.admin(s.handleDeleteChapter))
	mux.Handle("POST /api/admin/videos", s.admin(s.handleAddVideo))
	mux.Handle("DELETE /api/admin/videos/{id}", s.admin(s.handleDeleteVideo))
	mux.Handle("GET /api/admin/prompts", s.admin(s.handleListPrompts))
	mux.Handle("PUT /api/admin/prompts/{name}", s.admin(s.handlePutPrompt))
	mux.Handle("GET /api/admin/learners", s.admin(s.handleLearners))
	mux.Handle("GET /api/admin/learners.xlsx", s.admin(s.handleLearnersExport))
}

func (s *Server) learner(h http.HandlerFunc) http.Handler {
	return s.Auth.Require(h)
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return s.Auth.Require(RequireAdmin(h))
}

// learnerID returns the caller id set by the auth middleware.
func learnerID(r *http.Request) string {
	id, _ := IdentityFrom(r.Context())
	return id.LearnerID
}
