package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

func (m *MockClient) Name() string { return m.ProviderName }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: []ContentBlock{TextBlock("mock response")}}, nil
}

// ScriptedClient replays a fixed sequence of responses, one per call, and
// records every request it receives. Calls past the end of the script fail.
type ScriptedClient struct {
	mu        sync.Mutex
	responses [][]ContentBlock
	requests  []CompletionRequest
}

// NewScriptedClient creates a client that answers with each content list in turn.
func NewScriptedClient(responses ...[]ContentBlock) *ScriptedClient {
	return &ScriptedClient{responses: responses}
}

func (s *ScriptedClient) Name() string { return "scripted" }

func (s *ScriptedClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return nil, &ProviderError{Provider: "scripted", Message: "script exhausted"}
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return &CompletionResponse{Content: next, StopReason: "end_turn"}, nil
}

// Requests returns the requests received so far.
func (s *ScriptedClient) Requests() []CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CompletionRequest(nil), s.requests...)
}
