// Package ai generates text through learner-supplied Gemini and OpenRouter
// keys and turns prompt templates into the learning tools built on them.
package ai

import (
	"context"
	"errors"
)

// Provider names accepted by Generate.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

var (
	// ErrMissingKey means no API key was supplied for the call.
	ErrMissingKey = errors.New("API key is missing")
	// ErrUnknownProvider means the provider name is not registered.
	ErrUnknownProvider = errors.New("unknown AI provider")
	// ErrEmptyPrompt means there was nothing to send.
	ErrEmptyPrompt = errors.New("prompt is required")
	// ErrMalformedOutput means a structured tool reply did not parse or
	// validate.
	ErrMalformedOutput = errors.New("malformed AI output")
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to an AI completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// CompletionResponse is the output from an AI completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Provider is the interface all AI providers must implement.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// ProviderFactory builds a provider bound to one API key.
type ProviderFactory func(apiKey string) Provider
