package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-lingo/internal/ai"
	"github.com/p-n-ai/pai-lingo/internal/content"
	"github.com/p-n-ai/pai-lingo/internal/keyvault"
	"github.com/p-n-ai/pai-lingo/internal/progress"
	"github.com/p-n-ai/pai-lingo/internal/prompts"
	"github.com/p-n-ai/pai-lingo/internal/syllabus"
)

const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("request body is not valid JSON")

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes. Unknown errors map to
// fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, errBadJSON),
		errors.Is(err, progress.ErrMalformedInput),
		errors.Is(err, syllabus.ErrInvalidDocument),
		errors.Is(err, content.ErrInvalidVideo),
		errors.Is(err, prompts.ErrEmptyTemplate),
		errors.Is(err, keyvault.ErrUnknownSlot),
		errors.Is(err, ai.ErrMissingKey),
		errors.Is(err, ai.ErrUnknownProvider),
		errors.Is(err, ai.ErrEmptyPrompt),
		errors.Is(err, ai.ErrMissingInput):
		return http.StatusBadRequest
	case errors.Is(err, progress.ErrNotFound),
		errors.Is(err, syllabus.ErrNotFound),
		errors.Is(err, content.ErrNotFound),
		errors.Is(err, prompts.ErrUnknownPrompt),
		errors.Is(err, ai.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, progress.ErrAlreadyCompleted),
		errors.Is(err, progress.ErrWriteConflict),
		errors.Is(err, progress.ErrProfileExists),
		errors.Is(err, syllabus.ErrNestedDocument):
		return http.StatusConflict
	case errors.Is(err, ai.ErrMalformedOutput):
		return http.StatusBadGateway
	default:
		return fallback
	}
}

// fail writes err with its mapped status. Server-side failures are logged
// and their detail withheld.
func fail(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, status, http.StatusText(status))
		return
	}
	respondError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return b, nil
}
