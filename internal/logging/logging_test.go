package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
		wantErr  bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"dpanic", zapcore.DPanicLevel, false},
		{"panic", zapcore.PanicLevel, false},
		{"fatal", zapcore.FatalLevel, false},
		{"invalid", zapcore.InfoLevel, true},
		{"", zapcore.InfoLevel, true},
		{"  info  ", zapcore.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if !tt.wantErr && level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("expected Level = info, got %s", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected Format = json, got %s", cfg.Format)
	}
	if cfg.Service != "draftwise" {
		t.Errorf("expected Service = draftwise, got %s", cfg.Service)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		logger, err := New(nil)
		if err != nil {
			t.Fatalf("New(nil) error = %v", err)
		}
		if logger.GetLevel() != "info" {
			t.Errorf("expected level = info, got %s", logger.GetLevel())
		}
	})

	t.Run("invalid level returns error", func(t *testing.T) {
		if _, err := New(&Config{Level: "invalid"}); err == nil {
			t.Error("expected error for invalid level")
		}
	})

	t.Run("writes json with service field to output", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&Config{
			Level:       "debug",
			Format:      "json",
			Environment: "production",
			Service:     "draftwise",
			Output:      &buf,
		})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		logger.Info("session started")
		_ = logger.Sync()

		var entry map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
			t.Fatalf("output is not json: %v (%q)", err, buf.String())
		}
		if entry["service"] != "draftwise" {
			t.Errorf("service = %v", entry["service"])
		}
		if entry["msg"] != "session started" {
			t.Errorf("msg = %v", entry["msg"])
		}
	})
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&Config{Level: "info", Output: &buf})

	if err := logger.SetLevel("debug"); err != nil {
		t.Errorf("SetLevel(debug) error = %v", err)
	}
	if logger.GetLevel() != "debug" {
		t.Errorf("expected level = debug, got %s", logger.GetLevel())
	}
	if !strings.Contains(buf.String(), "log level changed") {
		t.Error("expected level change to be logged")
	}
	if err := logger.SetLevel("invalid"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestLogger_LevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&Config{Level: "warn", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")
	_ = logger.Sync()

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info entry written at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn entry missing")
	}
}

func TestLogger_Named(t *testing.T) {
	logger, _ := New(&Config{Level: "info", Output: &bytes.Buffer{}})
	named := logger.Named("wizard")

	if named.GetLevel() != logger.GetLevel() {
		t.Errorf("expected same level, got %s vs %s", named.GetLevel(), logger.GetLevel())
	}

	// Changing level on one should affect the other
	_ = logger.SetLevel("debug")
	if named.GetLevel() != "debug" {
		t.Errorf("expected named logger level to change, got %s", named.GetLevel())
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Info("discarded")
	if logger.Zap() == nil {
		t.Error("expected Zap() to return non-nil")
	}
}

func TestLogger_AtomicLevel(t *testing.T) {
	logger, _ := New(&Config{Level: "info", Output: &bytes.Buffer{}})
	level := logger.AtomicLevel()

	level.SetLevel(zapcore.DebugLevel)
	if logger.GetLevel() != "debug" {
		t.Errorf("expected atomic level change to affect logger, got %s", logger.GetLevel())
	}
}
