// Package audit records operator and data lifecycle events.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
)

// EventType represents the type of audit event.
type EventType string

// Audit event types.
const (
	// Data lifecycle events
	EventGenerationDeleted EventType = "data.generation.deleted"
	EventSessionAbandoned  EventType = "data.session.abandoned"

	// Authorization events
	EventAccessDenied      EventType = "authz.access.denied"
	EventRateLimitExceeded EventType = "authz.ratelimit.exceeded"

	// System events
	EventServiceStarted  EventType = "system.started"
	EventServiceStopping EventType = "system.stopping"
	EventConfigChanged   EventType = "system.config.changed"
)

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Event represents an audit log entry.
type Event struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`

	// Actor is the owner or "system".
	ActorID   string `json:"actor_id,omitempty"`
	ActorType string `json:"actor_type,omitempty"`

	SourceIP  string `json:"source_ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	Action  string `json:"action"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Logger writes audit events to a named zap logger.
type Logger struct {
	logger *zap.Logger
	clock  clock.Clock
}

// NewLogger creates a new audit logger.
func NewLogger(baseLogger *zap.Logger) *Logger {
	return &Logger{
		logger: baseLogger.Named("audit"),
		clock:  clock.New(),
	}
}

// WithClock replaces the logger's time source.
func (l *Logger) WithClock(c clock.Clock) *Logger {
	l.clock = c
	return l
}

// Log records an audit event, filling in the ID and timestamp when empty.
func (l *Logger) Log(_ context.Context, event *Event) {
	if l == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp == "" {
		event.Timestamp = l.clock.NowUTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	level := zap.InfoLevel
	switch event.Severity {
	case SeverityWarning:
		level = zap.WarnLevel
	case SeverityError, SeverityCritical:
		level = zap.ErrorLevel
	}

	var metadataJSON []byte
	if len(event.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			metadataJSON = []byte(`{"error":"failed to marshal metadata"}`)
		}
	}

	fields := []zap.Field{
		zap.String("audit_id", event.ID),
		zap.String("audit_timestamp", event.Timestamp),
		zap.String("event_type", string(event.Type)),
		zap.String("severity", string(event.Severity)),
		zap.String("action", event.Action),
		zap.String("outcome", event.Outcome),
	}
	optional := []struct{ key, value string }{
		{"actor_id", event.ActorID},
		{"actor_type", event.ActorType},
		{"source_ip", event.SourceIP},
		{"request_id", event.RequestID},
		{"resource_type", event.ResourceType},
		{"resource_id", event.ResourceID},
		{"reason", event.Reason},
	}
	for _, f := range optional {
		if f.value != "" {
			fields = append(fields, zap.String(f.key, f.value))
		}
	}
	if len(metadataJSON) > 0 {
		fields = append(fields, zap.ByteString("metadata", metadataJSON))
	}

	if ce := l.logger.Check(level, "audit event"); ce != nil {
		ce.Write(fields...)
	}
}

// GenerationDeleted logs removal of stored content.
func (l *Logger) GenerationDeleted(ctx context.Context, owner, generationID, ip, requestID string) {
	l.Log(ctx, &Event{
		Type:         EventGenerationDeleted,
		Severity:     SeverityInfo,
		ActorID:      owner,
		ActorType:    "owner",
		SourceIP:     ip,
		RequestID:    requestID,
		ResourceType: "generation",
		ResourceID:   generationID,
		Action:       "generation deleted",
		Outcome:      "success",
	})
}

// SessionAbandoned logs a wizard session discarded by its owner.
func (l *Logger) SessionAbandoned(ctx context.Context, owner, sessionID, ip, requestID string) {
	l.Log(ctx, &Event{
		Type:         EventSessionAbandoned,
		Severity:     SeverityInfo,
		ActorID:      owner,
		ActorType:    "owner",
		SourceIP:     ip,
		RequestID:    requestID,
		ResourceType: "session",
		ResourceID:   sessionID,
		Action:       "session abandoned",
		Outcome:      "success",
	})
}

// RateLimitExceeded logs a rejected request.
func (l *Logger) RateLimitExceeded(ctx context.Context, identifier, ip, requestID, limiterType string) {
	l.Log(ctx, &Event{
		Type:      EventRateLimitExceeded,
		Severity:  SeverityWarning,
		ActorID:   identifier,
		ActorType: "client",
		SourceIP:  ip,
		RequestID: requestID,
		Action:    "request rate limited",
		Outcome:   "denied",
		Reason:    "rate limit exceeded",
		Metadata: map[string]interface{}{
			"limiter_type": limiterType,
		},
	})
}

// LogLevelChanged logs a runtime log level change.
func (l *Logger) LogLevelChanged(ctx context.Context, previous, current, ip, requestID string) {
	l.Log(ctx, &Event{
		Type:         EventConfigChanged,
		Severity:     SeverityWarning,
		ActorType:    "operator",
		SourceIP:     ip,
		RequestID:    requestID,
		ResourceType: "config",
		ResourceID:   "log_level",
		Action:       "log level changed",
		Outcome:      "success",
		Metadata: map[string]interface{}{
			"previous": previous,
			"current":  current,
		},
	})
}

// ServiceStarted logs service startup.
func (l *Logger) ServiceStarted(ctx context.Context, version, environment string) {
	l.Log(ctx, &Event{
		Type:      EventServiceStarted,
		Severity:  SeverityInfo,
		ActorType: "system",
		Action:    "service started",
		Outcome:   "success",
		Metadata: map[string]interface{}{
			"version":     version,
			"environment": environment,
		},
	})
}

// ServiceStopping logs service shutdown initiation.
func (l *Logger) ServiceStopping(ctx context.Context, reason string) {
	l.Log(ctx, &Event{
		Type:      EventServiceStopping,
		Severity:  SeverityInfo,
		ActorType: "system",
		Action:    "service stopping",
		Outcome:   "success",
		Reason:    reason,
	})
}
