package mock

import (
	"context"
	"sync"

	"github.com/poiesic/inquirit/ai"
)

// MockLanguageModel is a test double for ai.LanguageModel.
type MockLanguageModel struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt ai.Prompt) (string, error)

	mu        sync.Mutex
	responses []string
	prompts   []ai.Prompt
}

// NewMockLanguageModel creates a mock that returns responses in order.
// Once the queue is exhausted it echoes the prompt input.
func NewMockLanguageModel(responses ...string) *MockLanguageModel {
	return &MockLanguageModel{responses: responses}
}

// Generate records the prompt and returns the next response.
func (m *MockLanguageModel) Generate(ctx context.Context, prompt ai.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn := m.GenerateFunc
	var next string
	queued := len(m.responses) > 0
	if queued {
		next = m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	if queued {
		return next, nil
	}
	return prompt.Input, nil
}

// Prompts returns a copy of every prompt received so far.
func (m *MockLanguageModel) Prompts() []ai.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ai.Prompt, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// CallCount returns the number of Generate calls.
func (m *MockLanguageModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Reset clears recorded prompts, queued responses and injected behavior.
func (m *MockLanguageModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.responses = nil
	m.GenerateFunc = nil
}
