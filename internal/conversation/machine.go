package conversation

import (
	"fmt"
	"strings"

	"github.com/jkindrix/draftwise/internal/clock"
	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/intent"
	"github.com/jkindrix/draftwise/internal/validation"
)

// RenderFunc converts markdown-ish text into HTML for confirmation entries.
type RenderFunc func(text string) (string, error)

// Option configures a Machine.
type Option func(*Machine)

// WithMinAnswerLength sets the local validator's minimum answer length.
func WithMinAnswerLength(n int) Option {
	return func(m *Machine) { m.local = validation.NewAnswerValidator(n) }
}

// WithAcknowledger replaces the acknowledgment picker.
func WithAcknowledger(a Acknowledger) Option {
	return func(m *Machine) { m.acks = a }
}

// WithClock sets the clock used for transcript timestamps.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithRenderer sets the renderer applied to confirmation entries.
func WithRenderer(r RenderFunc) Option {
	return func(m *Machine) { m.render = r }
}

// Machine is the conversation state machine. It is not safe for concurrent
// use; Session serializes access.
type Machine struct {
	schedule *domain.Schedule
	local    *validation.AnswerValidator
	acks     Acknowledger
	clock    clock.Clock
	render   RenderFunc

	started     bool
	mode        Mode
	position    int
	editKey     string
	pending     string
	revision    intent.Intent
	summarizing bool
	finalizing  bool
	firstName   string
	summary     string
	answers     domain.AnswerSet
	transcript  transcript
	outcomes    []Outcome
}

// NewMachine creates a machine for schedule. Starting a machine whose
// schedule has no questions fails with ErrEmptySchedule.
func NewMachine(schedule *domain.Schedule, opts ...Option) *Machine {
	m := &Machine{
		schedule: schedule,
		local:    validation.NewAnswerValidator(validation.DefaultMinAnswerLength),
		acks:     &RotatingAcks{},
		clock:    clock.New(),
		mode:     ModeInterviewing,
		answers:  make(domain.AnswerSet, schedule.Len()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatch applies ev and returns the collaborator commands to run next.
// A rejected answer is not an error: it produces feedback in the transcript.
func (m *Machine) Dispatch(ev Event) ([]Command, error) {
	if _, ok := ev.(Start); !ok && !m.started {
		return nil, ErrNotStarted
	}
	switch e := ev.(type) {
	case Start:
		return m.start()
	case Submit:
		return m.submit(e.Text)
	case ValidationResult:
		return m.validated(e)
	case SummaryResult:
		return m.summarized(e)
	case Edit:
		return m.edit(e.Key)
	case Finalize:
		return m.finalize()
	case CompletionResult:
		return m.completed(e)
	case Abort:
		return m.abort()
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedEvent, ev)
	}
}

func (m *Machine) start() ([]Command, error) {
	if m.started {
		return nil, ErrAlreadyStarted
	}
	if m.schedule.Len() == 0 {
		return nil, ErrEmptySchedule
	}
	m.started = true
	m.system(domain.EntryGreeting, "", greetingText)
	m.ask(0, "")
	return nil, nil
}

func (m *Machine) submit(text string) ([]Command, error) {
	if m.Busy() {
		return nil, ErrTurnInFlight
	}
	switch m.mode {
	case ModeComplete:
		return nil, ErrComplete
	case ModeConfirming:
		return nil, ErrNotAccepting
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyAnswer
	}

	q := m.schedule.At(m.position)
	m.transcript.append(domain.SpeakerUser, domain.EntryAnswer, q.Key, text, "", m.clock.NowUTC())

	value := text
	if m.mode == ModeEditingField {
		m.revision, value = intent.Compose(m.answers[q.Key], text)
		if m.revision == intent.KeepUnchanged {
			m.system(domain.EntryAck, q.Key, keptText)
			m.outcome(OutcomeKept)
			return m.confirm(), nil
		}
	}

	if check := m.local.Check(value); !check.Accepted {
		m.system(domain.EntryFeedback, q.Key, check.Reason)
		m.outcome(OutcomeLocalRejected)
		return nil, nil
	}

	m.pending = value
	m.mode = ModeAwaitingValidation
	return []Command{ValidateAnswer{Key: q.Key, Question: q.Prompt, Answer: value}}, nil
}

func (m *Machine) validated(e ValidationResult) ([]Command, error) {
	if m.mode != ModeAwaitingValidation {
		return nil, fmt.Errorf("%w: validation result in mode %s", ErrUnexpectedEvent, m.mode)
	}
	key := m.schedule.At(m.position).Key

	ack := ""
	switch {
	case e.Skipped:
	case e.Err != nil || e.Verdict == nil:
		m.outcome(OutcomeFailedOpen)
	case !e.Verdict.IsValid:
		feedback := strings.TrimSpace(e.Verdict.Feedback)
		if feedback == "" {
			feedback = remoteRejectedText
		}
		m.system(domain.EntryFeedback, key, feedback)
		m.pending = ""
		m.mode = m.resumeMode()
		m.outcome(OutcomeRemoteRejected)
		return nil, nil
	default:
		m.outcome(OutcomeRemoteAccepted)
		ack = strings.TrimSpace(e.Verdict.Acknowledgment)
	}

	m.answers[key] = m.pending
	m.pending = ""
	if key == m.schedule.NameKey {
		m.firstName = firstToken(m.answers[key])
	}
	if ack == "" {
		ack = m.acks.Acknowledge(m.firstName)
	}
	m.system(domain.EntryAck, key, ack)

	if m.editKey != "" {
		if m.revision == intent.Append {
			m.outcome(OutcomeAppended)
		} else {
			m.outcome(OutcomeReplaced)
		}
		return m.confirm(), nil
	}

	m.outcome(OutcomeCommitted)
	if m.position+1 < m.schedule.Len() {
		m.ask(m.position+1, "")
		return nil, nil
	}
	return m.confirm(), nil
}

// confirm enters confirming. A revision that kept the old value re-shows the
// cached summary; anything else requests a fresh one.
func (m *Machine) confirm() []Command {
	kept := m.editKey != "" && m.revision == intent.KeepUnchanged
	m.mode = ModeConfirming
	m.position = m.schedule.Len()
	m.editKey = ""
	if kept && m.summary != "" {
		m.showConfirmation(m.summary)
		return nil
	}
	m.summarizing = true
	return []Command{Summarize{ContentType: m.schedule.ContentType, Answers: m.answers.Clone()}}
}

func (m *Machine) summarized(e SummaryResult) ([]Command, error) {
	if !m.summarizing {
		return nil, fmt.Errorf("%w: summary result while not summarizing", ErrUnexpectedEvent)
	}
	m.summarizing = false
	summary := strings.TrimSpace(e.Summary)
	if e.Err != nil || summary == "" {
		summary = FallbackSummary(m.schedule, m.answers)
		m.outcome(OutcomeFallbackSummary)
	} else {
		m.outcome(OutcomeSummarized)
	}
	m.summary = summary
	m.showConfirmation(summary)
	return nil, nil
}

func (m *Machine) showConfirmation(summary string) {
	text := ConfirmationText(m.firstName, summary)
	html := ""
	if m.render != nil {
		if out, err := m.render(text); err == nil {
			html = out
		}
	}
	m.transcript.append(domain.SpeakerSystem, domain.EntryConfirmation, "", text, html, m.clock.NowUTC())
}

func (m *Machine) edit(key string) ([]Command, error) {
	if m.Busy() {
		return nil, ErrTurnInFlight
	}
	if m.mode != ModeConfirming {
		return nil, ErrNotConfirming
	}
	idx := m.schedule.IndexOf(key)
	if idx < 0 || !m.answers.Has(key) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	m.mode = ModeEditingField
	m.editKey = key
	m.revision = intent.Replace
	m.ask(idx, reaskPrefix)
	return nil, nil
}

func (m *Machine) finalize() ([]Command, error) {
	if m.Busy() {
		return nil, ErrTurnInFlight
	}
	if m.mode == ModeComplete {
		return nil, ErrComplete
	}
	if m.mode != ModeConfirming {
		return nil, ErrNotConfirming
	}
	if !m.answers.CompleteFor(m.schedule) {
		return nil, ErrIncomplete
	}
	m.finalizing = true
	return []Command{Complete{ContentType: m.schedule.ContentType, Answers: m.answers.Clone()}}, nil
}

func (m *Machine) completed(e CompletionResult) ([]Command, error) {
	if !m.finalizing {
		return nil, fmt.Errorf("%w: completion result while not finalizing", ErrUnexpectedEvent)
	}
	m.finalizing = false
	if e.Err != nil {
		m.system(domain.EntryNotice, "", completionFailed)
		m.outcome(OutcomeCompletionFailed)
		return nil, nil
	}
	m.mode = ModeComplete
	m.system(domain.EntryNotice, "", completedText)
	m.outcome(OutcomeCompleted)
	return nil, nil
}

func (m *Machine) abort() ([]Command, error) {
	switch {
	case m.mode == ModeAwaitingValidation:
		m.pending = ""
		m.mode = m.resumeMode()
		m.system(domain.EntryNotice, "", abortedText)
	case m.summarizing:
		return m.summarized(SummaryResult{Err: ErrUnexpectedEvent})
	case m.finalizing:
		m.finalizing = false
		m.system(domain.EntryNotice, "", completionFailed)
	default:
		return nil, fmt.Errorf("%w: nothing to abort", ErrUnexpectedEvent)
	}
	m.outcome(OutcomeAborted)
	return nil, nil
}

func (m *Machine) resumeMode() Mode {
	if m.editKey != "" {
		return ModeEditingField
	}
	return ModeInterviewing
}

func (m *Machine) ask(position int, prefix string) {
	q := m.schedule.At(position)
	m.position = position
	if m.editKey == "" {
		m.mode = ModeInterviewing
	}
	m.system(domain.EntryPrompt, q.Key, prefix+q.Prompt)
}

func (m *Machine) system(kind domain.EntryKind, key, text string) {
	m.transcript.append(domain.SpeakerSystem, kind, key, text, "", m.clock.NowUTC())
}

func (m *Machine) outcome(o Outcome) {
	m.outcomes = append(m.outcomes, o)
}

// Busy reports whether a collaborator call is outstanding.
func (m *Machine) Busy() bool {
	return m.mode == ModeAwaitingValidation || m.summarizing || m.finalizing
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.mode
}

// Position returns the current schedule position.
func (m *Machine) Position() int {
	return m.position
}

// EditKey returns the field being revised, if any.
func (m *Machine) EditKey() string {
	return m.editKey
}

// FirstName returns the cached first token of the name answer.
func (m *Machine) FirstName() string {
	return m.firstName
}

// Answers returns a copy of the committed answers.
func (m *Machine) Answers() domain.AnswerSet {
	return m.answers.Clone()
}

// Schedule returns the schedule the machine walks.
func (m *Machine) Schedule() *domain.Schedule {
	return m.schedule
}

// Transcript returns a copy of the live transcript.
func (m *Machine) Transcript() []domain.TranscriptEntry {
	return m.transcript.snapshot()
}

// Affordances lists the actions available while confirming.
func (m *Machine) Affordances() []Affordance {
	if m.mode != ModeConfirming || m.Busy() {
		return nil
	}
	out := make([]Affordance, 0, m.schedule.Len()+1)
	for _, q := range m.schedule.Questions {
		label := q.Label
		if label == "" {
			label = q.Key
		}
		out = append(out, Affordance{Action: ActionEdit, Key: q.Key, Label: "Edit " + label})
	}
	return append(out, Affordance{Action: ActionFinalize, Label: finalizeLabel})
}

// DrainChanges returns transcript changes since the previous call.
func (m *Machine) DrainChanges() []Change {
	return m.transcript.drain()
}

// DrainOutcomes returns outcomes since the previous call.
func (m *Machine) DrainOutcomes() []Outcome {
	out := m.outcomes
	m.outcomes = nil
	return out
}
