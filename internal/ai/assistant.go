package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
	"github.com/jkindrix/draftwise/internal/sanitize"
)

// ScheduleSource resolves the question schedule of a content type.
// *schedule.Registry satisfies it.
type ScheduleSource interface {
	Get(ct domain.ContentType) (*domain.Schedule, error)
}

// GenerationRequest describes one piece of content to write or refine.
type GenerationRequest struct {
	ContentType domain.ContentType
	Tone        domain.Tone
	WordLimit   int
	InputData   domain.AnswerSet
	// RefinementPrompt switches to refinement of ExistingContent.
	RefinementPrompt string
	ExistingContent  string
}

// Assistant is the wizard's language model collaborator: it validates
// answers, summarizes answer sets and writes the final content.
type Assistant struct {
	completer Completer
	schedules ScheduleSource
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger
}

// NewAssistant creates an Assistant. schedules may be nil, in which case
// summaries list answers by key.
func NewAssistant(completer Completer, schedules ScheduleSource, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		completer: completer,
		schedules: schedules,
		sanitizer: sanitize.NewDefault(),
		logger:    logger,
	}
}

type verdictPayload struct {
	IsValid        *bool  `json:"isValid"`
	Feedback       string `json:"feedback"`
	Acknowledgment string `json:"acknowledgment"`
}

func requireIsValid(v verdictPayload) error {
	if v.IsValid == nil {
		return errors.New("missing isValid")
	}
	return nil
}

// ValidateAnswer asks the model whether answer addresses question. Any error
// means the caller should fail open.
func (a *Assistant) ValidateAnswer(ctx context.Context, question, answer string) (*conversation.Verdict, error) {
	raw, err := a.completer.Complete(ctx, validationPrompt(question, answer))
	if err != nil {
		return nil, fmt.Errorf("failed to validate answer: %w", err)
	}
	payload, err := ExtractJSON(raw, requireIsValid)
	if err != nil {
		a.logger.Warn("unparseable validation verdict",
			zap.String("preview", a.sanitizer.Preview(raw, 0)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to validate answer: %w", err)
	}
	return &conversation.Verdict{
		IsValid:        *payload.IsValid,
		Feedback:       strings.TrimSpace(payload.Feedback),
		Acknowledgment: strings.TrimSpace(payload.Acknowledgment),
	}, nil
}

// Summarize asks the model for a conversational summary of answers.
func (a *Assistant) Summarize(ctx context.Context, contentType domain.ContentType, answers domain.AnswerSet) (string, error) {
	ordered := a.order(contentType, answers)
	text, err := a.completer.Complete(ctx, summaryPrompt(contentType, ordered))
	if err != nil {
		return "", fmt.Errorf("failed to summarize answers: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Generate writes the content for req, or refines ExistingContent when a
// refinement prompt is set.
func (a *Assistant) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	prompt, err := generationPrompt(req)
	if err != nil {
		return "", err
	}
	text, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (a *Assistant) order(contentType domain.ContentType, answers domain.AnswerSet) []domain.Answer {
	if a.schedules != nil {
		if s, err := a.schedules.Get(contentType); err == nil {
			ordered := answers.Ordered(s)
			if len(ordered) == len(answers) {
				return ordered
			}
		}
	}
	return sortedAnswers(answers)
}
