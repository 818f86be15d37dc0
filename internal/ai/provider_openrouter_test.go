package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenRouterProvider_Complete(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-or-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Role: "assistant", Content: "OpenRouter response"}}},
			Model:   "deepseek/deepseek-chat-v3.1:free",
			Usage:   chatUsage{PromptTokens: 7, CompletionTokens: 15},
		})
	}))
	defer server.Close()

	provider := NewOpenRouterProvider("test-or-key", WithOpenRouterBaseURL(server.URL))

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "OpenRouter response" {
		t.Errorf("content = %q, want %q", resp.Content, "OpenRouter response")
	}
	if resp.InputTokens != 7 {
		t.Errorf("input_tokens = %d, want 7", resp.InputTokens)
	}
	if got.Model != defaultOpenRouterModel {
		t.Errorf("request model = %q, want default %q", got.Model, defaultOpenRouterModel)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Errorf("request messages = %+v", got.Messages)
	}
}

func TestOpenRouterProvider_ExtraHeaders(t *testing.T) {
	var gotReferer, gotTitle string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []chatChoice{{Message: chatMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	provider := NewOpenRouterProvider("k", WithOpenRouterBaseURL(server.URL))
	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Model:    "custom/model",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotReferer == "" || gotTitle == "" {
		t.Errorf("missing attribution headers: referer=%q title=%q", gotReferer, gotTitle)
	}
	if resp.Model != "custom/model" {
		t.Errorf("model = %q, want request model when reply omits it", resp.Model)
	}
}

func TestOpenRouterProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	provider := NewOpenRouterProvider("k", WithOpenRouterBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestOpenRouterProvider_Complete_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer server.Close()

	provider := NewOpenRouterProvider("k", WithOpenRouterBaseURL(server.URL))
	_, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}
