package ai

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Router resolves a provider name to a key-bound provider and runs the
// completion. Keys belong to learners, so providers are built per call.
type Router struct {
	factories map[string]ProviderFactory
	mu        sync.RWMutex
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		factories: make(map[string]ProviderFactory),
	}
}

// NewDefaultRouter registers Gemini and OpenRouter with default endpoints.
func NewDefaultRouter() *Router {
	r := NewRouter()
	r.Register(ProviderGemini, func(key string) Provider { return NewGoogleProvider(key) })
	r.Register(ProviderOpenRouter, func(key string) Provider { return NewOpenRouterProvider(key) })
	return r
}

// Register adds or replaces a provider factory.
func (r *Router) Register(name string, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Providers lists registered provider names.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// Generate sends a single user prompt to the named provider and returns the
// reply text.
func (r *Router) Generate(ctx context.Context, provider, apiKey, model, prompt string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingKey
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	r.mu.RLock()
	factory, ok := r.factories[provider]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	resp, err := factory(apiKey).Complete(ctx, CompletionRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
		Model:    model,
	})
	if err != nil {
		slog.Warn("AI provider failed", "provider", provider, "model", model, "error", err)
		return "", fmt.Errorf("%s: %w", provider, err)
	}

	slog.Debug("AI request completed",
		"provider", provider,
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)
	return resp.Content, nil
}
