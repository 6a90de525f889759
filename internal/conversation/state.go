// Package conversation implements the chat-mode intake engine: a finite state
// machine that walks a question schedule, commits validated answers, supports
// revising a field after the initial pass, and hands the complete answer set
// to a completion callback.
//
// Machine is pure: Dispatch applies one event and returns the collaborator
// commands the caller must run. Session runs those commands and feeds their
// results back as events.
package conversation

import "errors"

// Mode is the engine's externally visible state.
type Mode string

const (
	ModeInterviewing       Mode = "interviewing"
	ModeAwaitingValidation Mode = "awaiting-answer-validation"
	ModeConfirming         Mode = "confirming"
	ModeEditingField       Mode = "editing-field"
	ModeComplete           Mode = "complete"
)

// Errors returned by Dispatch and Session operations.
var (
	ErrNotStarted      = errors.New("conversation not started")
	ErrAlreadyStarted  = errors.New("conversation already started")
	ErrTurnInFlight    = errors.New("a turn is already in progress")
	ErrNotAccepting    = errors.New("not accepting answers")
	ErrEmptyAnswer     = errors.New("answer is empty")
	ErrNotConfirming   = errors.New("conversation is not awaiting confirmation")
	ErrUnknownKey      = errors.New("unknown question key")
	ErrIncomplete      = errors.New("answer set is incomplete")
	ErrComplete        = errors.New("conversation is complete")
	ErrUnexpectedEvent = errors.New("unexpected event")
	ErrEmptySchedule   = errors.New("schedule has no questions")

	// ErrCompletionFailed wraps the error returned by a CompleteFunc.
	ErrCompletionFailed = errors.New("completion failed")
)

// Outcome names what a dispatched event resolved to. Sessions report
// outcomes to an Observer. A remote validation result yields at most one of
// remote_accepted, remote_rejected or failed_open, followed by the commit
// outcome when the answer is stored.
type Outcome string

const (
	OutcomeLocalRejected    Outcome = "local_rejected"
	OutcomeRemoteAccepted   Outcome = "remote_accepted"
	OutcomeRemoteRejected   Outcome = "remote_rejected"
	OutcomeCommitted        Outcome = "committed"
	OutcomeFailedOpen       Outcome = "failed_open"
	OutcomeKept             Outcome = "kept"
	OutcomeAppended         Outcome = "appended"
	OutcomeReplaced         Outcome = "replaced"
	OutcomeSummarized       Outcome = "summarized"
	OutcomeFallbackSummary  Outcome = "fallback_summary"
	OutcomeCompleted        Outcome = "completed"
	OutcomeCompletionFailed Outcome = "completion_failed"
	OutcomeAborted          Outcome = "aborted"
)

// Action is a user affordance offered while confirming.
type Action string

const (
	ActionEdit     Action = "edit"
	ActionFinalize Action = "finalize"
)

// Affordance describes one button a presentation layer may render.
type Affordance struct {
	Action Action `json:"action"`
	Key    string `json:"key,omitempty"`
	Label  string `json:"label"`
}
