package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
)

// BusinessEventLogger writes one searchable log line per wizard or
// generation milestone. It complements the Prometheus series with ids.
type BusinessEventLogger struct {
	logger *zap.Logger
	clock  clock.Clock
}

// NewBusinessEventLogger creates a new business event logger.
func NewBusinessEventLogger(logger *zap.Logger) *BusinessEventLogger {
	return &BusinessEventLogger{
		logger: logger.Named("business_events"),
		clock:  clock.New(),
	}
}

// SessionStarted logs a new wizard session.
func (l *BusinessEventLogger) SessionStarted(_ context.Context, sessionID string, contentType domain.ContentType, owner string) {
	l.logger.Info("session_started",
		zap.String("event_type", "session.started"),
		zap.String("session_id", sessionID),
		zap.String("content_type", string(contentType)),
		zap.String("owner", maskIdentifier(owner)),
		zap.Time("timestamp", l.clock.NowUTC()),
	)
}

// SessionEnded logs a session leaving the store. reason is one of the
// End* constants.
func (l *BusinessEventLogger) SessionEnded(_ context.Context, sessionID string, contentType domain.ContentType, reason string, age time.Duration) {
	l.logger.Info("session_ended",
		zap.String("event_type", "session.ended"),
		zap.String("session_id", sessionID),
		zap.String("content_type", string(contentType)),
		zap.String("reason", reason),
		zap.Duration("age", age),
		zap.Time("timestamp", l.clock.NowUTC()),
	)
}

// GenerationCreated logs the outcome of a content generation.
func (l *BusinessEventLogger) GenerationCreated(_ context.Context, genID uuid.UUID, contentType domain.ContentType, mode string, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("event_type", "generation.created"),
		zap.String("content_type", string(contentType)),
		zap.String("mode", mode),
		zap.Duration("duration", duration),
		zap.Bool("success", err == nil),
		zap.Time("timestamp", l.clock.NowUTC()),
	}
	if genID != uuid.Nil {
		fields = append(fields, zap.String("generation_id", genID.String()))
	}

	if err == nil {
		l.logger.Info("generation_created", fields...)
		return
	}
	fields = append(fields,
		zap.String("error_code", string(apperrors.GetCode(err))),
		zap.Bool("retriable", apperrors.IsRetriable(err)),
		zap.Error(err),
	)
	if apperrors.IsUserError(err) {
		l.logger.Info("generation_rejected", fields...)
		return
	}
	l.logger.Warn("generation_failed", fields...)
}

// GenerationRefined logs a refinement of stored content.
func (l *BusinessEventLogger) GenerationRefined(_ context.Context, genID uuid.UUID, duration time.Duration) {
	l.logger.Info("generation_refined",
		zap.String("event_type", "generation.refined"),
		zap.String("generation_id", genID.String()),
		zap.Duration("duration", duration),
		zap.Time("timestamp", l.clock.NowUTC()),
	)
}

// GenerationDeleted logs removal of stored content.
func (l *BusinessEventLogger) GenerationDeleted(_ context.Context, genID uuid.UUID, owner string) {
	l.logger.Info("generation_deleted",
		zap.String("event_type", "generation.deleted"),
		zap.String("generation_id", genID.String()),
		zap.String("owner", maskIdentifier(owner)),
		zap.Time("timestamp", l.clock.NowUTC()),
	)
}

// ExternalAPICall logs one model provider call.
func (l *BusinessEventLogger) ExternalAPICall(_ context.Context, provider, operation string, duration time.Duration, success bool) {
	level := l.logger.Info
	eventName := "external_api_call"
	if !success {
		level = l.logger.Warn
		eventName = "external_api_call_failed"
	}
	level(eventName,
		zap.String("event_type", "external_api.call"),
		zap.String("provider", provider),
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Bool("success", success),
		zap.Time("timestamp", l.clock.NowUTC()),
	)
}

// RateLimitExceeded logs when a rate limit is exceeded.
func (l *BusinessEventLogger) RateLimitExceeded(_ context.Context, limiterType string, identifier string) {
	l.logger.Warn("rate_limit_exceeded",
		zap.String("event_type", "rate_limit.exceeded"),
		zap.String("limiter_type", limiterType),
		zap.String("identifier", maskIdentifier(identifier)),
		zap.Time("timestamp", l.clock.NowUTC()),
	)
}

// maskIdentifier masks an owner or client identifier for privacy.
func maskIdentifier(id string) string {
	if id == domain.AnonymousOwner {
		return id
	}
	if len(id) <= 4 {
		return "****"
	}
	return id[:2] + "****" + id[len(id)-2:]
}
