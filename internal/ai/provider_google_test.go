package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiReply(text string) geminiResponse {
	return geminiResponse{
		Candidates: []geminiCandidate{
			{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: text}}}},
		},
		UsageMetadata: geminiUsage{PromptTokenCount: 8, CandidatesTokenCount: 12},
	}
}

func TestGoogleProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-flash-lite-latest:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing or wrong API key header")
		}
		if r.URL.RawQuery != "" {
			t.Errorf("key leaked into query: %s", r.URL.RawQuery)
		}

		var req geminiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("contents = %+v", req.Contents)
		}

		json.NewEncoder(w).Encode(geminiReply("Gemini response"))
	}))
	defer server.Close()

	provider := NewGoogleProvider("test-key", WithGoogleBaseURL(server.URL))

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Gemini response" {
		t.Errorf("content = %q, want %q", resp.Content, "Gemini response")
	}
	if resp.Model != defaultGeminiModel {
		t.Errorf("model = %q, want %q", resp.Model, defaultGeminiModel)
	}
	if resp.TotalTokens() != 20 {
		t.Errorf("TotalTokens() = %d, want 20", resp.TotalTokens())
	}
}

func TestGoogleProvider_Complete_RoleMappings(t *testing.T) {
	var received []geminiContent

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		json.NewDecoder(r.Body).Decode(&req)
		received = req.Contents
		json.NewEncoder(w).Encode(geminiReply("ok"))
	}))
	defer server.Close()

	provider := NewGoogleProvider("k", WithGoogleBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "be nice"},
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(received) != 2 {
		t.Fatalf("len(contents) = %d, want 2 (system dropped)", len(received))
	}
	if received[1].Role != "model" {
		t.Errorf("assistant role mapped to %q, want model", received[1].Role)
	}
}

func TestGoogleProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("bad", WithGoogleBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Errorf("error = %v, want provider message", err)
	}
}

func TestGoogleProvider_Complete_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiResponse{})
	}))
	defer server.Close()

	provider := NewGoogleProvider("k", WithGoogleBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestGoogleProvider_Complete_GenerationConfig(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(geminiReply("ok"))
	}))
	defer server.Close()

	provider := NewGoogleProvider("k", WithGoogleBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages:    []Message{{Role: "user", Content: "hi"}},
		MaxTokens:   256,
		Temperature: 0.4,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.GenerationConfig == nil || got.GenerationConfig.MaxOutputTokens != 256 {
		t.Fatalf("generationConfig = %+v", got.GenerationConfig)
	}
	if got.GenerationConfig.Temperature == nil || *got.GenerationConfig.Temperature != 0.4 {
		t.Errorf("temperature = %v", got.GenerationConfig.Temperature)
	}
}

func TestApiErrorMessage(t *testing.T) {
	if got := apiErrorMessage([]byte(`{"error":{"message":"quota"}}`)); got != "quota" {
		t.Errorf("apiErrorMessage() = %q", got)
	}
	if got := apiErrorMessage([]byte("gateway timeout")); got != "gateway timeout" {
		t.Errorf("apiErrorMessage(raw) = %q", got)
	}
}
