package ai

import (
	"context"
	"sync"
	"time"

	"github.com/jkindrix/draftwise/internal/circuitbreaker"
)

// mockCompleter returns canned responses and records prompts.
type mockCompleter struct {
	mu        sync.Mutex
	name      string
	responses []string
	err       error
	block     bool
	prompts   []Prompt
}

func (m *mockCompleter) Complete(ctx context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", ErrEmptyResponse
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *mockCompleter) Name() string {
	if m.name == "" {
		return "mock"
	}
	return m.name
}

func (m *mockCompleter) lastPrompt() Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return Prompt{}
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *mockCompleter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type llmObservation struct {
	provider, operation, outcome string
}

// mockRecorder captures metrics calls.
type mockRecorder struct {
	mu           sync.Mutex
	requests     []llmObservation
	stateChanges []circuitbreaker.State
}

func (r *mockRecorder) RecordLLMRequest(provider, operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, llmObservation{provider, operation, outcome})
}

func (r *mockRecorder) BreakerStateChanged(_ string, _, to circuitbreaker.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateChanges = append(r.stateChanges, to)
}

func (r *mockRecorder) outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.requests))
	for i, o := range r.requests {
		out[i] = o.outcome
	}
	return out
}

// mockCallEvents captures business events for provider calls.
type mockCallEvents struct {
	mu    sync.Mutex
	calls []callEvent
}

type callEvent struct {
	provider  string
	operation string
	success   bool
}

func (e *mockCallEvents) ExternalAPICall(_ context.Context, provider, operation string, _ time.Duration, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, callEvent{provider, operation, success})
}
