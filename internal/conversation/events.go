package conversation

import "github.com/jkindrix/draftwise/internal/domain"

// Event is an input to Machine.Dispatch.
type Event interface {
	eventName() string
}

// Start greets the user and asks the first question.
type Start struct{}

// Submit is a user answer for the current question.
type Submit struct {
	Text string
}

// ValidationResult carries the remote validator's response to ValidateAnswer.
// A non-nil Err means the call failed and the answer is accepted. Skipped
// means no validator is configured; the answer is accepted without a verdict.
type ValidationResult struct {
	Verdict *Verdict
	Err     error
	Skipped bool
}

// SummaryResult carries the remote summarizer's response to Summarize.
// On Err or an empty summary the engine builds the fallback summary.
type SummaryResult struct {
	Summary string
	Err     error
}

// Edit re-opens a previously answered field while confirming.
type Edit struct {
	Key string
}

// Finalize accepts the confirmed answers.
type Finalize struct{}

// CompletionResult carries the outcome of the Complete command.
type CompletionResult struct {
	Err error
}

// Abort abandons an in-flight collaborator call without committing anything.
type Abort struct{}

func (Start) eventName() string            { return "start" }
func (Submit) eventName() string           { return "submit" }
func (ValidationResult) eventName() string { return "validation_result" }
func (SummaryResult) eventName() string    { return "summary_result" }
func (Edit) eventName() string             { return "edit" }
func (Finalize) eventName() string         { return "finalize" }
func (CompletionResult) eventName() string { return "completion_result" }
func (Abort) eventName() string            { return "abort" }

// Command is a collaborator call requested by the machine. The caller runs it
// and dispatches the matching result event.
type Command interface {
	commandName() string
}

// ValidateAnswer asks the remote validator to judge an answer.
// Result: ValidationResult.
type ValidateAnswer struct {
	Key      string
	Question string
	Answer   string
}

// Summarize asks the remote summarizer for a confirmation summary.
// Result: SummaryResult.
type Summarize struct {
	ContentType domain.ContentType
	Answers     domain.AnswerSet
}

// Complete hands the full answer set to the completion callback.
// Result: CompletionResult.
type Complete struct {
	ContentType domain.ContentType
	Answers     domain.AnswerSet
}

func (ValidateAnswer) commandName() string { return "validate_answer" }
func (Summarize) commandName() string      { return "summarize" }
func (Complete) commandName() string       { return "complete" }

// Verdict is the remote validator's judgement of one answer.
type Verdict struct {
	IsValid        bool   `json:"isValid"`
	Feedback       string `json:"feedback,omitempty"`
	Acknowledgment string `json:"acknowledgment,omitempty"`
}
