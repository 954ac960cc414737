package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/poiesic/docchat/ai"
)

// MockCompleter is a test double for ai.Completer.
// It records every system prompt it receives.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, the last user message is echoed back.
	CompleteFunc func(ctx context.Context, systemPrompt string, messages []ai.Message) (string, error)

	callCount atomic.Int64

	mu      sync.Mutex
	prompts []string
	inputs  [][]ai.Message
}

var _ ai.Completer = (*MockCompleter)(nil)

// NewMockCompleter creates a mock completer with echo behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// WithCompleteFunc sets custom behaviour and returns the mock for chaining.
func (m *MockCompleter) WithCompleteFunc(fn func(ctx context.Context, systemPrompt string, messages []ai.Message) (string, error)) *MockCompleter {
	m.CompleteFunc = fn
	return m
}

// Complete records the call and returns the injected or echoed reply.
func (m *MockCompleter) Complete(ctx context.Context, systemPrompt string, messages []ai.Message) (string, error) {
	m.callCount.Add(1)

	m.mu.Lock()
	m.prompts = append(m.prompts, systemPrompt)
	m.inputs = append(m.inputs, append([]ai.Message(nil), messages...))
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, systemPrompt, messages)
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			return "echo: " + messages[i].Content, nil
		}
	}
	return "echo:", nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return int(m.callCount.Load())
}

// LastPrompt returns the most recent system prompt, or "" if none.
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// LastMessages returns a copy of the most recent message history.
func (m *MockCompleter) LastMessages() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return append([]ai.Message(nil), m.inputs[len(m.inputs)-1]...)
}

// Reset clears recorded calls and custom functions.
func (m *MockCompleter) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.prompts = nil
	m.inputs = nil
	m.mu.Unlock()
	m.CompleteFunc = nil
}
