package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
	"github.com/jkindrix/draftwise/internal/config"
	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
	"github.com/jkindrix/draftwise/internal/metrics"
	"github.com/jkindrix/draftwise/internal/realtime"
	"github.com/jkindrix/draftwise/internal/render"
	"github.com/jkindrix/draftwise/internal/validation"
)

// AnswerAssistant judges answers and summarizes answer sets.
// *ai.Assistant satisfies it.
type AnswerAssistant interface {
	conversation.RemoteValidator
	conversation.Summarizer
}

// Generator persists content for a finalized answer set.
// *GenerationService satisfies it.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (*domain.Generation, error)
}

// FinalizeOptions are the generation knobs chosen at finalize time.
type FinalizeOptions struct {
	Tone      domain.Tone
	WordLimit int
}

// SessionView is the externally visible state of a wizard session.
type SessionView struct {
	ID        string    `json:"id"`
	Owner     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	conversation.Snapshot
	Generation *domain.Generation `json:"generation,omitempty"`
}

// wizardSession is one stored conversation.
type wizardSession struct {
	id        string
	owner     string
	createdAt time.Time
	session   *conversation.Session

	generation atomic.Pointer[domain.Generation]
	endReason  atomic.Value
}

func (ws *wizardSession) reason() string {
	if r, ok := ws.endReason.Load().(string); ok {
		return r
	}
	return metrics.EndExpired
}

// WizardService runs chat-mode sessions. Sessions live in a bounded,
// expiring in-memory store; each operation refreshes the session's TTL.
type WizardService struct {
	store     *expirable.LRU[string, *wizardSession]
	schedules ScheduleSource
	assistant AnswerAssistant
	generator Generator
	bus       realtime.Bus

	wizardCfg   config.WizardConfig
	genDefaults config.GenerationConfig

	logger  *zap.Logger
	metrics *metrics.Metrics
	events  *metrics.BusinessEventLogger
	clock   clock.Clock
}

// WizardServiceConfig configures a WizardService.
type WizardServiceConfig struct {
	Wizard     config.WizardConfig
	Sessions   config.SessionsConfig
	Generation config.GenerationConfig
}

// NewWizardService creates a new WizardService. assistant, bus, metrics and
// events may be nil; without an assistant every answer is accepted and the
// summary falls back to the deterministic bullet list.
func NewWizardService(
	cfg WizardServiceConfig,
	schedules ScheduleSource,
	assistant AnswerAssistant,
	generator Generator,
	bus realtime.Bus,
	logger *zap.Logger,
	m *metrics.Metrics,
	events *metrics.BusinessEventLogger,
) *WizardService {
	s := &WizardService{
		schedules:   schedules,
		assistant:   assistant,
		generator:   generator,
		bus:         bus,
		wizardCfg:   cfg.Wizard,
		genDefaults: cfg.Generation,
		logger:      logger.Named("wizard"),
		metrics:     m,
		events:      events,
		clock:       clock.New(),
	}
	s.store = expirable.NewLRU[string, *wizardSession](cfg.Sessions.Max, s.onEvict, cfg.Sessions.TTL)
	return s
}

// SetClock replaces the time source, for tests.
func (s *WizardService) SetClock(c clock.Clock) {
	s.clock = c
}

// Start opens a session for contentType and asks the first question.
func (s *WizardService) Start(ctx context.Context, contentType domain.ContentType, owner string) (*SessionView, error) {
	sched, err := s.schedules.Get(contentType)
	if err != nil {
		return nil, mapScheduleError(string(contentType), err)
	}

	ws := &wizardSession{
		id:        uuid.NewString(),
		owner:     ownerOrAnonymous(owner),
		createdAt: s.clock.NowUTC(),
	}
	ws.session = conversation.NewSession(s.newMachine(sched), s.sessionConfig(ws.id))

	if err := ws.session.Start(ctx); err != nil {
		return nil, mapTurnError("wizard.Start", err)
	}
	s.store.Add(ws.id, ws)

	if s.metrics != nil {
		s.metrics.RecordSessionStarted(contentType)
	}
	if s.events != nil {
		s.events.SessionStarted(ctx, ws.id, contentType, ws.owner)
	}
	s.publishState(ctx, ws)
	return s.view(ws), nil
}

// Get returns the current state of a session.
func (s *WizardService) Get(_ context.Context, owner, id string) (*SessionView, error) {
	ws, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	return s.view(ws), nil
}

// Submit runs one answer turn.
func (s *WizardService) Submit(ctx context.Context, owner, id, text string) (*SessionView, error) {
	return s.turn(ctx, owner, id, "wizard.Submit", func(ws *wizardSession) error {
		return ws.session.Submit(ctx, text)
	})
}

// Edit re-opens the field key for revision.
func (s *WizardService) Edit(ctx context.Context, owner, id, key string) (*SessionView, error) {
	return s.turn(ctx, owner, id, "wizard.Edit", func(ws *wizardSession) error {
		return ws.session.Edit(ctx, key)
	})
}

// Finalize generates and stores content from the session's answers. A
// failed generation leaves the session confirming so finalize can be retried.
func (s *WizardService) Finalize(ctx context.Context, owner, id string, opts FinalizeOptions) (*SessionView, error) {
	params := validation.NormalizeGenerationParams(validation.GenerationParams{
		Tone:      opts.Tone,
		WordLimit: opts.WordLimit,
	})
	if opts.Tone == "" && s.genDefaults.DefaultTone != "" {
		params.Tone = domain.Tone(s.genDefaults.DefaultTone)
	}
	if opts.WordLimit == 0 && s.genDefaults.DefaultWordLimit != 0 {
		params.WordLimit = s.genDefaults.DefaultWordLimit
	}
	if errs := validation.ValidateGenerationParams(params); errs.HasErrors() {
		return nil, validationError(errs)
	}

	view, err := s.turn(ctx, owner, id, "wizard.Finalize", func(ws *wizardSession) error {
		return ws.session.Finalize(ctx, func(ctx context.Context, ct domain.ContentType, answers domain.AnswerSet) error {
			gen, err := s.generator.Generate(ctx, GenerateInput{
				Owner:       ws.owner,
				ContentType: ct,
				Tone:        params.Tone,
				WordLimit:   params.WordLimit,
				Answers:     answers,
				Mode:        ModeWizard,
			})
			if err != nil {
				return err
			}
			ws.generation.Store(gen)
			ws.endReason.Store(metrics.EndCompleted)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if s.events != nil && view.Generation != nil {
		s.events.SessionEnded(ctx, id, view.ContentType, metrics.EndCompleted, s.clock.Since(view.CreatedAt))
	}
	return view, nil
}

// Abandon discards a session.
func (s *WizardService) Abandon(_ context.Context, owner, id string) error {
	ws, err := s.lookup(owner, id)
	if err != nil {
		return err
	}
	if ws.session.Busy() {
		return apperrors.ErrTurnInFlight
	}
	if ws.generation.Load() == nil {
		ws.endReason.Store(metrics.EndAbandoned)
	}
	s.store.Remove(id)
	return nil
}

// Subscribe streams the session's transcript events. It fails when no bus
// is configured.
func (s *WizardService) Subscribe(ctx context.Context, owner, id string) (<-chan realtime.Event, func(), error) {
	if _, err := s.lookup(owner, id); err != nil {
		return nil, nil, err
	}
	if s.bus == nil {
		return nil, nil, apperrors.New(apperrors.CodeInternal, "live transcript streaming is not configured")
	}
	ch, cancel, err := s.bus.Subscribe(ctx, id)
	if err != nil {
		return nil, nil, apperrors.InternalError("failed to subscribe to session", err)
	}
	return ch, cancel, nil
}

// Len returns the number of stored sessions.
func (s *WizardService) Len() int {
	return s.store.Len()
}

// Close drops every session.
func (s *WizardService) Close() {
	s.store.Purge()
}

func (s *WizardService) turn(ctx context.Context, owner, id, op string, fn func(*wizardSession) error) (*SessionView, error) {
	ws, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	// Re-adding refreshes the TTL.
	s.store.Add(id, ws)

	err = fn(ws)
	s.publishState(ctx, ws)
	if err != nil {
		return nil, mapTurnError(op, err)
	}
	return s.view(ws), nil
}

func (s *WizardService) lookup(owner, id string) (*wizardSession, error) {
	ws, ok := s.store.Get(id)
	if !ok || ws.owner != ownerOrAnonymous(owner) {
		return nil, apperrors.ErrSessionNotFound
	}
	return ws, nil
}

func (s *WizardService) view(ws *wizardSession) *SessionView {
	return &SessionView{
		ID:         ws.id,
		Owner:      ws.owner,
		CreatedAt:  ws.createdAt,
		Snapshot:   ws.session.Snapshot(),
		Generation: ws.generation.Load(),
	}
}

func (s *WizardService) newMachine(sched *domain.Schedule) *conversation.Machine {
	var acks conversation.Acknowledger
	if s.wizardCfg.AckMode == config.AckModeRotating {
		acks = &conversation.RotatingAcks{}
	} else {
		acks = conversation.NewRandomAcks(uint64(s.clock.Now().UnixNano()))
	}

	opts := []conversation.Option{
		conversation.WithAcknowledger(acks),
		conversation.WithRenderer(render.Markdown),
		conversation.WithClock(s.clock),
	}
	if s.wizardCfg.MinAnswerLength > 0 {
		opts = append(opts, conversation.WithMinAnswerLength(s.wizardCfg.MinAnswerLength))
	}
	return conversation.NewMachine(sched, opts...)
}

func (s *WizardService) sessionConfig(id string) conversation.SessionConfig {
	cfg := conversation.SessionConfig{
		Notifier: &busNotifier{sessionID: id, bus: s.bus, clock: s.clock, logger: s.logger},
		Logger:   s.logger.With(zap.String("session_id", id)),
	}
	if s.assistant != nil {
		if s.wizardCfg.RemoteValidation {
			cfg.Validator = s.assistant
		}
		if s.wizardCfg.RemoteSummary {
			cfg.Summarizer = s.assistant
		}
	}
	if s.metrics != nil {
		cfg.Observer = s.metrics
	}
	return cfg
}

// onEvict runs for expiry, capacity eviction, Remove and Purge. It must not
// call back into the store.
func (s *WizardService) onEvict(id string, ws *wizardSession) {
	reason := ws.reason()
	if s.metrics != nil {
		s.metrics.RecordSessionEnded(reason)
	}
	if s.events != nil && reason != metrics.EndCompleted {
		s.events.SessionEnded(context.Background(), id, ws.session.ContentType(), reason, s.clock.Since(ws.createdAt))
	}
	if s.bus != nil {
		ev := realtime.Event{Type: realtime.EventClosed, SessionID: id, At: s.clock.NowUTC()}
		if err := s.bus.Publish(context.Background(), id, ev); err != nil {
			s.logger.Debug("failed to publish session close", zap.String("session_id", id), zap.Error(err))
		}
	}
}

func (s *WizardService) publishState(ctx context.Context, ws *wizardSession) {
	if s.bus == nil {
		return
	}
	snap := ws.session.Snapshot()
	ev := realtime.Event{
		Type:      realtime.EventState,
		SessionID: ws.id,
		Mode:      string(snap.Mode),
		Busy:      snap.Busy,
		At:        s.clock.NowUTC(),
	}
	if err := s.bus.Publish(context.WithoutCancel(ctx), ws.id, ev); err != nil {
		s.logger.Debug("failed to publish session state", zap.String("session_id", ws.id), zap.Error(err))
	}
}

// busNotifier forwards transcript changes to the realtime bus.
type busNotifier struct {
	sessionID string
	bus       realtime.Bus
	clock     clock.Clock
	logger    *zap.Logger
}

func (n *busNotifier) Notify(changes []conversation.Change) {
	if n.bus == nil {
		return
	}
	for _, ev := range realtime.FromChanges(n.sessionID, changes, n.clock.NowUTC()) {
		if err := n.bus.Publish(context.Background(), n.sessionID, ev); err != nil {
			n.logger.Debug("failed to publish transcript change",
				zap.String("session_id", n.sessionID),
				zap.Error(err),
			)
			return
		}
	}
}
