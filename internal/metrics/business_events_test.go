package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jkindrix/draftwise/internal/clock"
	"github.com/jkindrix/draftwise/internal/domain"
	apperrors "github.com/jkindrix/draftwise/internal/errors"
)

func newTestLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

func newTestEventLogger() (*BusinessEventLogger, *observer.ObservedLogs) {
	logger, logs := newTestLogger()
	bel := NewBusinessEventLogger(logger)
	bel.clock = clock.NewMock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	return bel, logs
}

func TestBusinessEventLogger_SessionStarted(t *testing.T) {
	bel, logs := newTestEventLogger()

	bel.SessionStarted(context.Background(), "sess-1", domain.ContentTypeBio, "user-12345")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Message != "session_started" {
		t.Errorf("expected message 'session_started', got '%s'", entry.Message)
	}
	fields := entry.ContextMap()
	if fields["event_type"] != "session.started" {
		t.Errorf("event_type = %v", fields["event_type"])
	}
	if fields["content_type"] != "bio" {
		t.Errorf("content_type = %v", fields["content_type"])
	}
	if fields["owner"] != "us****45" {
		t.Errorf("owner = %v, want masked", fields["owner"])
	}
	if ts, ok := fields["timestamp"].(time.Time); !ok || !ts.Equal(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", fields["timestamp"])
	}
}

func TestBusinessEventLogger_SessionEnded(t *testing.T) {
	bel, logs := newTestEventLogger()

	bel.SessionEnded(context.Background(), "sess-1", domain.ContentTypeProject, EndExpired, 2*time.Hour)

	fields := logs.All()[0].ContextMap()
	if fields["reason"] != "expired" {
		t.Errorf("reason = %v", fields["reason"])
	}
	if fields["age"] != 2*time.Hour {
		t.Errorf("age = %v", fields["age"])
	}
}

func TestBusinessEventLogger_GenerationCreated(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		bel, logs := newTestEventLogger()
		id := uuid.New()

		bel.GenerationCreated(context.Background(), id, domain.ContentTypeBio, "wizard", time.Second, nil)

		entry := logs.All()[0]
		if entry.Message != "generation_created" || entry.Level != zapcore.InfoLevel {
			t.Errorf("entry = %s at %s", entry.Message, entry.Level)
		}
		if entry.ContextMap()["generation_id"] != id.String() {
			t.Errorf("generation_id = %v", entry.ContextMap()["generation_id"])
		}
	})

	t.Run("failure", func(t *testing.T) {
		bel, logs := newTestEventLogger()

		bel.GenerationCreated(context.Background(), uuid.Nil, domain.ContentTypeBio, "form", time.Second, errors.New("provider down"))

		entry := logs.All()[0]
		if entry.Message != "generation_failed" || entry.Level != zapcore.WarnLevel {
			t.Errorf("entry = %s at %s", entry.Message, entry.Level)
		}
		fields := entry.ContextMap()
		if _, ok := fields["generation_id"]; ok {
			t.Error("failed generation should not carry an id")
		}
		if fields["success"] != false {
			t.Errorf("success = %v", fields["success"])
		}
		if fields["error_code"] != "INTERNAL_ERROR" || fields["retriable"] != false {
			t.Errorf("error_code = %v retriable = %v", fields["error_code"], fields["retriable"])
		}
	})

	t.Run("transient failure", func(t *testing.T) {
		bel, logs := newTestEventLogger()

		err := apperrors.GenerationError("generation.Generate", errors.New("upstream 502"))
		bel.GenerationCreated(context.Background(), uuid.Nil, domain.ContentTypeBio, "wizard", time.Second, err)

		entry := logs.All()[0]
		if entry.Message != "generation_failed" || entry.Level != zapcore.WarnLevel {
			t.Errorf("entry = %s at %s", entry.Message, entry.Level)
		}
		fields := entry.ContextMap()
		if fields["error_code"] != "GENERATION_FAILED" || fields["retriable"] != true {
			t.Errorf("error_code = %v retriable = %v", fields["error_code"], fields["retriable"])
		}
	})

	t.Run("user error", func(t *testing.T) {
		bel, logs := newTestEventLogger()

		err := apperrors.ValidationFailed("word_limit: must be between 100 and 1000")
		bel.GenerationCreated(context.Background(), uuid.Nil, domain.ContentTypeProject, "form", 0, err)

		entry := logs.All()[0]
		if entry.Message != "generation_rejected" || entry.Level != zapcore.InfoLevel {
			t.Errorf("entry = %s at %s", entry.Message, entry.Level)
		}
	})
}

func TestBusinessEventLogger_ExternalAPICall(t *testing.T) {
	bel, logs := newTestEventLogger()

	bel.ExternalAPICall(context.Background(), "anthropic", "validate", 300*time.Millisecond, true)
	bel.ExternalAPICall(context.Background(), "anthropic", "summarize", time.Second, false)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Message != "external_api_call" {
		t.Errorf("first = %s", entries[0].Message)
	}
	if entries[1].Message != "external_api_call_failed" || entries[1].Level != zapcore.WarnLevel {
		t.Errorf("second = %s at %s", entries[1].Message, entries[1].Level)
	}
}

func TestBusinessEventLogger_GenerationLifecycle(t *testing.T) {
	bel, logs := newTestEventLogger()
	id := uuid.New()

	bel.GenerationRefined(context.Background(), id, time.Second)
	bel.GenerationDeleted(context.Background(), id, domain.AnonymousOwner)
	bel.RateLimitExceeded(context.Background(), "generation", "10.0.0.1")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	if entries[1].ContextMap()["owner"] != "anonymous" {
		t.Errorf("anonymous owner should not be masked, got %v", entries[1].ContextMap()["owner"])
	}
	if entries[2].ContextMap()["identifier"] != "10****.1" {
		t.Errorf("identifier = %v", entries[2].ContextMap()["identifier"])
	}
}

func TestMaskIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc", "****"},
		{"user-42", "us****42"},
		{"anonymous", "anonymous"},
	}
	for _, tt := range tests {
		if got := maskIdentifier(tt.input); got != tt.expected {
			t.Errorf("maskIdentifier(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
