package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for AI providers. It is also used by the
// server when no provider is configured.
type MockProvider struct {
	mu          sync.Mutex
	Response    string
	Err         error
	Calls       int
	LastRequest *CompletionRequest
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.LastRequest = &req
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

// SetResponse replaces the canned reply.
func (m *MockProvider) SetResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Response = response
}

// CallCount returns how many completions were requested.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// Last returns a copy of the most recent request.
func (m *MockProvider) Last() (CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LastRequest == nil {
		return CompletionRequest{}, false
	}
	return *m.LastRequest, true
}
