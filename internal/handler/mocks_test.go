package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
	"github.com/jkindrix/draftwise/internal/realtime"
	"github.com/jkindrix/draftwise/internal/service"
)

// mockHealthChecker implements HealthChecker for testing
type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.pingErr
}

// mockAIHealthChecker implements AIHealthChecker for testing
type mockAIHealthChecker struct {
	circuitOpen bool
}

func (m *mockAIHealthChecker) IsOpen() bool {
	return m.circuitOpen
}

type mockReadiness struct {
	ready bool
}

func (m *mockReadiness) IsReady() bool {
	return m.ready
}

type mockSessionCounter int

func (m mockSessionCounter) Len() int {
	return int(m)
}

// mockSessions implements WizardSessions for testing.
type mockSessions struct {
	mu sync.Mutex

	view *service.SessionView
	err  error

	events chan realtime.Event

	// Recorded arguments
	owners    []string
	submitted []string
	editKeys  []string
	finalize  []service.FinalizeOptions
	abandoned []string
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		view: &service.SessionView{
			ID:        "sess-1",
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Snapshot: conversation.Snapshot{
				ContentType: domain.ContentTypeBio,
				Mode:        conversation.ModeInterviewing,
				Total:       4,
				Answers:     domain.AnswerSet{},
			},
		},
		events: make(chan realtime.Event, 8),
	}
}

func (m *mockSessions) record(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners = append(m.owners, owner)
}

func (m *mockSessions) result() (*service.SessionView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.view, nil
}

func (m *mockSessions) Start(_ context.Context, contentType domain.ContentType, owner string) (*service.SessionView, error) {
	m.record(owner)
	if !contentType.IsValid() {
		return nil, apperrors.UnknownContentType(string(contentType))
	}
	return m.result()
}

func (m *mockSessions) Get(_ context.Context, owner, _ string) (*service.SessionView, error) {
	m.record(owner)
	return m.result()
}

func (m *mockSessions) Submit(_ context.Context, owner, _, text string) (*service.SessionView, error) {
	m.record(owner)
	m.mu.Lock()
	m.submitted = append(m.submitted, text)
	m.mu.Unlock()
	return m.result()
}

func (m *mockSessions) Edit(_ context.Context, owner, _, key string) (*service.SessionView, error) {
	m.record(owner)
	m.mu.Lock()
	m.editKeys = append(m.editKeys, key)
	m.mu.Unlock()
	return m.result()
}

func (m *mockSessions) Finalize(_ context.Context, owner, _ string, opts service.FinalizeOptions) (*service.SessionView, error) {
	m.record(owner)
	m.mu.Lock()
	m.finalize = append(m.finalize, opts)
	m.mu.Unlock()
	return m.result()
}

func (m *mockSessions) Abandon(_ context.Context, owner, id string) error {
	m.record(owner)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.abandoned = append(m.abandoned, id)
	return m.err
}

func (m *mockSessions) Subscribe(_ context.Context, owner, _ string) (<-chan realtime.Event, func(), error) {
	m.record(owner)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.events, func() {}, nil
}

func (m *mockSessions) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.submitted...)
}

// mockGenerations implements Generations for testing.
type mockGenerations struct {
	mu sync.Mutex

	gen   *domain.Generation
	list  []*domain.Generation
	total int
	err   error

	inputs     []service.GenerateInput
	listLimit  int
	listOffset int
	deleted    []uuid.UUID
}

func (m *mockGenerations) Generate(_ context.Context, in service.GenerateInput) (*domain.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return m.gen, nil
}

func (m *mockGenerations) Refine(_ context.Context, _ string, _ uuid.UUID, _ string) (*domain.Generation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.gen, nil
}

func (m *mockGenerations) Get(_ context.Context, _ string, id uuid.UUID) (*domain.Generation, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.gen == nil || m.gen.ID != id {
		return nil, apperrors.NotFound("generation")
	}
	return m.gen, nil
}

func (m *mockGenerations) List(_ context.Context, _ string, limit, offset int) ([]*domain.Generation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listLimit, m.listOffset = limit, offset
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.list, m.total, nil
}

func (m *mockGenerations) Delete(_ context.Context, _ string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type staticSchedules struct {
	schedules map[domain.ContentType]*domain.Schedule
	order     []domain.ContentType
}

func (s *staticSchedules) Get(ct domain.ContentType) (*domain.Schedule, error) {
	sched, ok := s.schedules[ct]
	if !ok {
		return nil, apperrors.UnknownContentType(string(ct))
	}
	return sched, nil
}

func (s *staticSchedules) Types() []domain.ContentType {
	return s.order
}
