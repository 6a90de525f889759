package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/jkindrix/draftwise/internal/domain"
)

func reflectionSchedule() *domain.Schedule {
	return &domain.Schedule{
		ContentType: domain.ContentTypeReflection,
		Questions: []domain.Question{
			{Key: "topic", Prompt: "What topic did you learn about?", Label: "Learning Topic"},
			{Key: "context", Prompt: "Where and how did you learn this?", Label: "Learning Context"},
		},
	}
}

func bioSchedule() *domain.Schedule {
	return &domain.Schedule{
		ContentType: domain.ContentTypeBio,
		NameKey:     "name",
		Questions: []domain.Question{
			{Key: "name", Prompt: "What's your full name?", Label: "Full Name"},
			{Key: "skills", Prompt: "What are your key skills and areas of expertise?", Label: "Key Skills"},
		},
	}
}

// mockValidator is a RemoteValidator with an injectable verdict and error.
type mockValidator struct {
	mu        sync.Mutex
	verdict   *Verdict
	err       error
	calls     int
	questions []string
	answers   []string

	// block, when set, is received from before returning.
	block chan struct{}
	// entered, when set, is signalled when a call starts.
	entered chan struct{}
}

func (m *mockValidator) ValidateAnswer(ctx context.Context, question, answer string) (*Verdict, error) {
	m.mu.Lock()
	m.calls++
	m.questions = append(m.questions, question)
	m.answers = append(m.answers, answer)
	block, entered := m.block, m.entered
	verdict, err := m.verdict, m.err
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if verdict == nil && err == nil {
		verdict = &Verdict{IsValid: true}
	}
	return verdict, err
}

func (m *mockValidator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSummarizer is a Summarizer with an injectable summary and error.
type mockSummarizer struct {
	mu      sync.Mutex
	summary string
	err     error
	calls   int
	last    domain.AnswerSet
}

func (m *mockSummarizer) Summarize(ctx context.Context, contentType domain.ContentType, answers domain.AnswerSet) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = answers
	return m.summary, m.err
}

// recordingNotifier keeps every change it receives.
type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingNotifier) Notify(changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, changes...)
}

func (r *recordingNotifier) count(op ChangeOp) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.changes {
		if c.Op == op {
			n++
		}
	}
	return n
}

// recordingObserver counts outcomes.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[Outcome]int
	turns    int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{outcomes: make(map[Outcome]int)}
}

func (r *recordingObserver) ObserveOutcome(_ domain.ContentType, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[o]++
}

func (r *recordingObserver) ObserveTurn(domain.ContentType, string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns++
}

func (r *recordingObserver) count(o Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[o]
}
