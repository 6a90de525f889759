package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/domain"
)

// RemoteValidator semantically judges an answer against its question.
type RemoteValidator interface {
	ValidateAnswer(ctx context.Context, question, answer string) (*Verdict, error)
}

// Summarizer turns a complete answer set into a confirmation summary.
type Summarizer interface {
	Summarize(ctx context.Context, contentType domain.ContentType, answers domain.AnswerSet) (string, error)
}

// CompleteFunc receives the full answer set when the user finalizes. A
// returned error is shown to the user and finalize may be retried.
type CompleteFunc func(ctx context.Context, contentType domain.ContentType, answers domain.AnswerSet) error

// Notifier receives transcript changes in order.
type Notifier interface {
	Notify(changes []Change)
}

// Observer receives turn outcomes, typically for metrics.
type Observer interface {
	ObserveOutcome(contentType domain.ContentType, outcome Outcome)
	ObserveTurn(contentType domain.ContentType, event string, duration time.Duration)
}

// errNoSummarizer selects the fallback summary when no summarizer is wired.
var errNoSummarizer = errors.New("no summarizer configured")

// SessionConfig holds the collaborators of a Session. Validator, Summarizer,
// Notifier and Observer are optional.
type SessionConfig struct {
	Validator  RemoteValidator
	Summarizer Summarizer
	Notifier   Notifier
	Observer   Observer
	Logger     *zap.Logger
}

// Session runs a Machine against its collaborators. Each public operation is
// one atomic turn; a second operation while a turn is running fails with
// ErrTurnInFlight.
type Session struct {
	mu      sync.Mutex
	machine *Machine
	busy    atomic.Bool

	validator  RemoteValidator
	summarizer Summarizer
	notifier   Notifier
	observer   Observer
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewSession wraps machine with the given collaborators.
func NewSession(machine *Machine, cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		machine:    machine,
		validator:  cfg.Validator,
		summarizer: cfg.Summarizer,
		notifier:   cfg.Notifier,
		observer:   cfg.Observer,
		logger:     logger,
		tracer:     otel.Tracer("github.com/jkindrix/draftwise/internal/conversation"),
	}
}

// Start greets the user and asks the first question.
func (s *Session) Start(ctx context.Context) error {
	return s.run(ctx, Start{}, nil)
}

// Submit runs one answer turn: local validation, remote validation and, at
// the end of the schedule, summarization.
func (s *Session) Submit(ctx context.Context, text string) error {
	return s.run(ctx, Submit{Text: text}, nil)
}

// Edit re-opens a field for revision.
func (s *Session) Edit(ctx context.Context, key string) error {
	return s.run(ctx, Edit{Key: key}, nil)
}

// Finalize hands the answers to complete. complete runs at most once
// successfully per session.
func (s *Session) Finalize(ctx context.Context, complete CompleteFunc) error {
	if complete == nil {
		return errors.New("finalize requires a completion callback")
	}
	return s.run(ctx, Finalize{}, complete)
}

// Busy reports whether a turn is running. Presentation layers disable input
// while it is true.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Snapshot is a read-only view of the session state.
type Snapshot struct {
	ContentType domain.ContentType       `json:"content_type"`
	Mode        Mode                     `json:"mode"`
	Position    int                      `json:"position"`
	Total       int                      `json:"total"`
	EditKey     string                   `json:"edit_key,omitempty"`
	Busy        bool                     `json:"busy"`
	Answers     domain.AnswerSet         `json:"answers"`
	Transcript  []domain.TranscriptEntry `json:"transcript"`
	Affordances []Affordance             `json:"affordances,omitempty"`
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machine
	return Snapshot{
		ContentType: m.Schedule().ContentType,
		Mode:        m.Mode(),
		Position:    m.Position(),
		Total:       m.Schedule().Len(),
		EditKey:     m.EditKey(),
		Busy:        s.busy.Load(),
		Answers:     m.Answers(),
		Transcript:  m.Transcript(),
		Affordances: m.Affordances(),
	}
}

// ContentType returns the session's content type.
func (s *Session) ContentType() domain.ContentType {
	return s.machine.Schedule().ContentType
}

func (s *Session) run(ctx context.Context, ev Event, complete CompleteFunc) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrTurnInFlight
	}
	defer s.busy.Store(false)

	start := time.Now()
	name := ev.eventName()
	ctx, span := s.tracer.Start(ctx, "engine."+name,
		trace.WithAttributes(attribute.String("content_type", string(s.ContentType()))))
	defer span.End()

	var turnErr error
	cmds, err := s.dispatch(ev)
	for err == nil && len(cmds) > 0 {
		result := s.execute(ctx, cmds[0], complete)
		switch r := result.(type) {
		case CompletionResult:
			if r.Err != nil {
				turnErr = fmt.Errorf("%w: %w", ErrCompletionFailed, r.Err)
			}
		case Abort:
			turnErr = ctx.Err()
		}
		var more []Command
		more, err = s.dispatch(result)
		cmds = append(cmds[1:], more...)
	}
	if err == nil {
		err = turnErr
	}
	if s.observer != nil {
		s.observer.ObserveTurn(s.ContentType(), name, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Session) dispatch(ev Event) ([]Command, error) {
	s.mu.Lock()
	cmds, err := s.machine.Dispatch(ev)
	changes := s.machine.DrainChanges()
	outcomes := s.machine.DrainOutcomes()
	s.mu.Unlock()

	if s.notifier != nil && len(changes) > 0 {
		s.notifier.Notify(changes)
	}
	for _, o := range outcomes {
		s.logger.Debug("turn outcome",
			zap.String("content_type", string(s.ContentType())),
			zap.String("event", ev.eventName()),
			zap.String("outcome", string(o)),
		)
		if s.observer != nil {
			s.observer.ObserveOutcome(s.ContentType(), o)
		}
	}
	return cmds, err
}

// execute runs one command and returns the event that reports its result.
// Caller cancellation aborts validation and completion; a cancelled summary
// falls back like any other summary failure.
func (s *Session) execute(ctx context.Context, cmd Command, complete CompleteFunc) Event {
	switch c := cmd.(type) {
	case ValidateAnswer:
		if s.validator == nil {
			return ValidationResult{Skipped: true}
		}
		verdict, err := s.validator.ValidateAnswer(ctx, c.Question, c.Answer)
		if ctx.Err() != nil {
			return Abort{}
		}
		if err != nil {
			s.logger.Warn("remote validation failed, accepting answer",
				zap.String("key", c.Key),
				zap.Error(err),
			)
		}
		return ValidationResult{Verdict: verdict, Err: err}

	case Summarize:
		if s.summarizer == nil {
			return SummaryResult{Err: errNoSummarizer}
		}
		summary, err := s.summarizer.Summarize(ctx, c.ContentType, c.Answers)
		if err != nil {
			s.logger.Warn("remote summary failed, using fallback",
				zap.String("content_type", string(c.ContentType)),
				zap.Error(err),
			)
		}
		return SummaryResult{Summary: summary, Err: err}

	case Complete:
		err := complete(ctx, c.ContentType, c.Answers)
		if err != nil {
			s.logger.Error("completion failed",
				zap.String("content_type", string(c.ContentType)),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return Abort{}
			}
		}
		return CompletionResult{Err: err}
	}
	return Abort{}
}
