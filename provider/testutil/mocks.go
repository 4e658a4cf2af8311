package testutil

import (
	"context"
	"strings"
	"sync"

	"mdpilot/model"
)

// MockProvider implements model.Provider for testing. Every call to Stream is
// recorded.
type MockProvider struct {
	// Configurable responses
	StreamFunc     func(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) error
	ListModelsFunc func(ctx context.Context) ([]model.ModelInfo, error)

	name string

	mu       sync.Mutex
	requests []model.ChatRequest
}

// NewMockProvider creates a mock provider that answers every request with
// "Mock response".
func NewMockProvider(name string) *MockProvider {
	mock := &MockProvider{name: name}
	mock.StreamFunc = Reply("Mock ", "response")
	mock.ListModelsFunc = mock.defaultListModels
	return mock
}

func (m *MockProvider) defaultListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{Name: "mock-model-1", Size: 1000, Provider: m.name},
		{Name: "mock-model-2", Size: 2000, Provider: m.name},
	}, nil
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Stream(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.StreamFunc(ctx, req, callback)
}

func (m *MockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return m.ListModelsFunc(ctx)
}

// Requests returns the requests seen so far.
func (m *MockProvider) Requests() []model.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChatRequest(nil), m.requests...)
}

// Calls returns the number of Stream calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reply returns a StreamFunc that emits tokens followed by Done with their
// concatenation.
func Reply(tokens ...string) func(context.Context, model.ChatRequest, model.StreamCallback) error {
	return Script(append(tokenEvents(tokens), model.Done(strings.Join(tokens, "")))...)
}

// Script returns a StreamFunc that emits events in order.
func Script(events ...model.StreamEvent) func(context.Context, model.ChatRequest, model.StreamCallback) error {
	return func(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) error {
		for _, ev := range events {
			if err := callback(ev); err != nil {
				return err
			}
		}
		return nil
	}
}

// Hang returns a StreamFunc that emits tokens, signals started, and then
// blocks until ctx is cancelled.
func Hang(started chan<- struct{}, tokens ...string) func(context.Context, model.ChatRequest, model.StreamCallback) error {
	return func(ctx context.Context, req model.ChatRequest, callback model.StreamCallback) error {
		for _, ev := range tokenEvents(tokens) {
			if err := callback(ev); err != nil {
				return err
			}
		}
		if started != nil {
			started <- struct{}{}
		}
		<-ctx.Done()
		return ctx.Err()
	}
}

func tokenEvents(tokens []string) []model.StreamEvent {
	events := make([]model.StreamEvent, len(tokens))
	for i, t := range tokens {
		events[i] = model.Token(t)
	}
	return events
}

// Notifications records Notifier calls.
type Notifications struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *Notifications) Success(msg string) {
	n.mu.Lock()
	n.successes = append(n.successes, msg)
	n.mu.Unlock()
}

func (n *Notifications) Error(msg string) {
	n.mu.Lock()
	n.errors = append(n.errors, msg)
	n.mu.Unlock()
}

// Successes returns the success messages seen so far.
func (n *Notifications) Successes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.successes...)
}

// Errors returns the error messages seen so far.
func (n *Notifications) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}
