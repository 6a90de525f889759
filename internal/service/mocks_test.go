package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkindrix/draftwise/internal/ai"
	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/repository"
)

// MockGenerationRepository is a mock implementation of domain.GenerationRepository for testing.
type MockGenerationRepository struct {
	mu          sync.RWMutex
	generations map[uuid.UUID]*domain.Generation

	// For tracking method calls
	CreateCalls int
	UpdateCalls int
	DeleteCalls int

	// For injecting errors
	CreateError error
	UpdateError error
	ListError   error
}

func NewMockGenerationRepository() *MockGenerationRepository {
	return &MockGenerationRepository{generations: make(map[uuid.UUID]*domain.Generation)}
}

func (m *MockGenerationRepository) Create(_ context.Context, gen *domain.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateError != nil {
		return m.CreateError
	}
	copied := *gen
	m.generations[gen.ID] = &copied
	return nil
}

func (m *MockGenerationRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gen, ok := m.generations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *gen
	return &copied, nil
}

func (m *MockGenerationRepository) UpdateContent(_ context.Context, gen *domain.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored, ok := m.generations[gen.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.GeneratedContent = gen.GeneratedContent
	stored.UpdatedAt = gen.UpdatedAt
	return nil
}

func (m *MockGenerationRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Generation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*domain.Generation
	for _, gen := range m.generations {
		if gen.UserID == userID {
			out = append(out, gen)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockGenerationRepository) CountByUser(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, gen := range m.generations {
		if gen.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MockGenerationRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if _, ok := m.generations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.generations, id)
	return nil
}

// MockContentGenerator records generation requests.
type MockContentGenerator struct {
	mu       sync.Mutex
	Content  string
	Err      error
	Requests []ai.GenerationRequest
}

func (m *MockContentGenerator) Generate(_ context.Context, req ai.GenerationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Content, nil
}

func (m *MockContentGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockLimiter counts acquisitions.
type MockLimiter struct {
	mu         sync.Mutex
	AcquireErr error
	Acquired   int
	Released   int
}

func (m *MockLimiter) Acquire(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AcquireErr != nil {
		return m.AcquireErr
	}
	m.Acquired++
	return nil
}

func (m *MockLimiter) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Released++
}

// MockArchiver records archived documents.
type MockArchiver struct {
	mu      sync.Mutex
	PutErr  error
	Puts    []uuid.UUID
	Deletes []uuid.UUID
}

func (m *MockArchiver) Put(_ context.Context, gen *domain.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts = append(m.Puts, gen.ID)
	return m.PutErr
}

func (m *MockArchiver) Delete(_ context.Context, _ string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, id)
	return nil
}

// MockAssistant answers validation and summary calls.
type MockAssistant struct {
	mu            sync.Mutex
	Verdict       *conversation.Verdict
	ValidateErr   error
	Summary       string
	SummaryErr    error
	ValidateCalls int
	SummaryCalls  int
}

func (m *MockAssistant) ValidateAnswer(context.Context, string, string) (*conversation.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidateCalls++
	if m.ValidateErr != nil {
		return nil, m.ValidateErr
	}
	if m.Verdict == nil {
		return &conversation.Verdict{IsValid: true}, nil
	}
	return m.Verdict, nil
}

func (m *MockAssistant) Summarize(context.Context, domain.ContentType, domain.AnswerSet) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummaryCalls++
	return m.Summary, m.SummaryErr
}

// MockGenerator stands in for GenerationService in wizard tests.
type MockGenerator struct {
	mu     sync.Mutex
	Err    error
	Inputs []GenerateInput
}

func (m *MockGenerator) Generate(_ context.Context, in GenerateInput) (*domain.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inputs = append(m.Inputs, in)
	if m.Err != nil {
		return nil, m.Err
	}
	return domain.NewGeneration(in.Owner, in.ContentType, in.Tone, in.WordLimit, in.Answers, "generated", time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)), nil
}
