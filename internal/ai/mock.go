package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for AI providers.
type MockProvider struct {
	Response string
	Err      error

	mu      sync.Mutex
	lastReq *CompletionRequest
	lastKey string
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

// Factory returns a ProviderFactory that records the key it was built with.
func (m *MockProvider) Factory() ProviderFactory {
	return func(apiKey string) Provider {
		m.mu.Lock()
		m.lastKey = apiKey
		m.mu.Unlock()
		return m
	}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	m.lastReq = &req
	m.mu.Unlock()
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	return CompletionResponse{
		Content:      m.Response,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(m.Response),
	}, nil
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReq
}

// LastKey returns the API key of the most recent factory call.
func (m *MockProvider) LastKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastKey
}
