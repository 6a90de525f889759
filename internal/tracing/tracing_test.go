package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/config"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), config.TracingConfig{}, Service{Name: "draftwise"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracing should produce invalid span contexts")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestInit_StdoutExportsOnShutdown(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.TracingConfig{Enabled: true, Exporter: ExporterStdout, SampleRatio: 1}
	p, err := Init(context.Background(), cfg, Service{Name: "draftwise", Version: "test"}, zap.NewNop(), WithStdoutWriter(&buf))
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "engine.submit")
	if !span.SpanContext().IsValid() {
		t.Error("expected a sampled span")
	}
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "engine.submit") {
		t.Errorf("exported spans missing engine.submit: %s", buf.String())
	}
}

func TestInit_UnknownExporter(t *testing.T) {
	cfg := config.TracingConfig{Enabled: true, Exporter: "jaeger"}
	if _, err := Init(context.Background(), cfg, Service{}, zap.NewNop()); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestClampRatio(t *testing.T) {
	tests := map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 3: 1}
	for in, want := range tests {
		if got := clampRatio(in); got != want {
			t.Errorf("clampRatio(%v) = %v, expected %v", in, got, want)
		}
	}
}
