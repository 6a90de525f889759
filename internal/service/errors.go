package service

import (
	"context"
	"errors"

	"github.com/jkindrix/draftwise/internal/ai"
	"github.com/jkindrix/draftwise/internal/circuitbreaker"
	"github.com/jkindrix/draftwise/internal/conversation"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
	"github.com/jkindrix/draftwise/internal/ratelimit"
	"github.com/jkindrix/draftwise/internal/repository"
	"github.com/jkindrix/draftwise/internal/schedule"
	"github.com/jkindrix/draftwise/internal/validation"
)

// mapAIError classifies a content provider failure.
func mapAIError(op string, err error) error {
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		return apperrors.WrapWithOp(err, op)
	case errors.Is(err, ai.ErrRateLimited):
		return apperrors.Wrap(err, op, apperrors.CodeRateLimited, "content provider rate limit reached, please try again shortly")
	case errors.Is(err, ai.ErrQuotaExceeded):
		return apperrors.Wrap(err, op, apperrors.CodeQuotaExceeded, "content generation quota exceeded")
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return apperrors.Wrap(err, op, apperrors.CodeCircuitOpen, "content provider temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, op, apperrors.CodeTimeout, "content generation timed out")
	case errors.Is(err, ai.ErrNoProvider):
		return apperrors.Wrap(err, op, apperrors.CodeExternalService, "no content provider configured")
	default:
		return apperrors.GenerationError(op, err)
	}
}

// mapRepoError classifies a persistence failure.
func mapRepoError(op string, err error) error {
	var appErr *apperrors.Error
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("generation")
	case errors.As(err, &appErr):
		return err
	default:
		return apperrors.DatabaseError(op, err)
	}
}

// mapScheduleError turns an unknown content type into a user error.
func mapScheduleError(raw string, err error) error {
	if errors.Is(err, schedule.ErrUnknownContentType) {
		return apperrors.UnknownContentType(raw)
	}
	return apperrors.InternalError("failed to load schedule", err)
}

// mapTurnError classifies a conversation turn failure. Errors already
// classified by a completion callback pass through.
func mapTurnError(op string, err error) error {
	var appErr *apperrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, conversation.ErrTurnInFlight):
		return apperrors.ErrTurnInFlight
	case errors.Is(err, conversation.ErrEmptyAnswer):
		return apperrors.ValidationFailed("answer is empty")
	case errors.Is(err, conversation.ErrUnknownKey):
		return apperrors.InvalidInput(err.Error())
	case errors.Is(err, conversation.ErrNotAccepting),
		errors.Is(err, conversation.ErrNotConfirming),
		errors.Is(err, conversation.ErrIncomplete),
		errors.Is(err, conversation.ErrComplete),
		errors.Is(err, conversation.ErrNotStarted),
		errors.Is(err, conversation.ErrAlreadyStarted),
		errors.Is(err, conversation.ErrUnexpectedEvent):
		return apperrors.InvalidState(err.Error(), err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, op, apperrors.CodeTimeout, "request cancelled before the turn finished")
	case errors.Is(err, conversation.ErrCompletionFailed):
		return mapAIError(op, err)
	default:
		return apperrors.InternalError("conversation turn failed", err)
	}
}

// validationError converts field errors into a user error.
func validationError(errs validation.ValidationErrors) error {
	return apperrors.ValidationFailed(errs.Error())
}

// isRateLimited reports whether err came from the generation limiter.
func isRateLimited(err error) bool {
	return errors.Is(err, ratelimit.ErrRateLimitExceeded)
}
