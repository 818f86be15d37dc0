package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/p-n-ai/pai-lingo/internal/ai"
	"github.com/p-n-ai/pai-lingo/internal/keyvault"
)

func (s *Server) handleGetKeys(w http.ResponseWriter, r *http.Request) {
	masked, err := s.Vault.Masked(r.Context(), learnerID(r))
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, masked)
}

// handlePutKeys merges the submitted keys; blank values keep the stored key.
func (s *Server) handlePutKeys(w http.ResponseWriter, r *http.Request) {
	var keys map[string]string
	if err := decodeJSON(w, r, &keys); err != nil {
		fail(w, r, err, http.StatusBadRequest)
		return
	}
	id := learnerID(r)
	if err := s.Vault.Save(r.Context(), id, keys); err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	masked, err := s.Vault.Masked(r.Context(), id)
	if err != nil {
		fail(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, masked)
}

type generateRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey,omitempty"`
	// Slot names a stored key to use when APIKey is empty.
	Slot   string `json:"slot,omitempty"`
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, err, http.StatusBadRequest)
		return
	}
	key := req.APIKey
	if key == "" && req.Slot != "" {
		stored, err := s.Vault.Key(r.Context(), learnerID(r), req.Slot)
		switch {
		case err == nil:
			key = stored
		case errors.Is(err, keyvault.ErrNoKey):
			// Generate reports the missing key.
		default:
			fail(w, r, err, http.StatusInternalServerError)
			return
		}
	}

	text, err := s.Router.Generate(r.Context(), req.Provider, key, req.Model, req.Prompt)
	if err != nil {
		fail(w, r, err, http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, ai.Tools())
}

// handleRunTool runs a prompt-templated tool. Structured tools return the
// decoded result; text tools return the reply.
func (s *Server) handleRunTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("tool")
	tool, ok := ai.LookupTool(name)
	if !ok {
		fail(w, r, fmt.Errorf("%w: %q", ai.ErrUnknownTool, name), http.StatusNotFound)
		return
	}

	var body map[string]any
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			fail(w, r, err, http.StatusBadRequest)
			return
		}
	}
	vars := make(map[string]string, len(body))
	for k, v := range body {
		vars[k] = strings.TrimSpace(fmt.Sprint(v))
	}

	id := learnerID(r)
	if tool.Shape != "" {
		result, err := s.Tools.Structured(r.Context(), id, name, vars)
		if err != nil {
			fail(w, r, err, http.StatusBadGateway)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"tool": name, "result": result})
		return
	}

	text, err := s.Tools.Run(r.Context(), id, name, vars)
	if err != nil {
		fail(w, r, err, http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"tool": name, "text": text})
}
