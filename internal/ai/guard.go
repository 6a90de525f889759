package ai

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/circuitbreaker"
	"github.com/jkindrix/draftwise/internal/clock"
)

// Outcome labels for provider calls.
const (
	OutcomeSuccess       = "success"
	OutcomeFailure       = "failure"
	OutcomeCircuitOpen   = "circuit_open"
	OutcomeRateLimited   = "rate_limited"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeTimeout       = "timeout"
	OutcomeCanceled      = "canceled"
)

// Recorder receives one observation per provider call and breaker
// transitions. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordLLMRequest(provider, operation, outcome string, duration time.Duration)
	BreakerStateChanged(name string, from, to circuitbreaker.State)
}

// CallEvents receives a business event per provider call.
// *metrics.BusinessEventLogger satisfies it.
type CallEvents interface {
	ExternalAPICall(ctx context.Context, provider, operation string, duration time.Duration, success bool)
}

// GuardConfig configures a Guarded completer.
type GuardConfig struct {
	// Timeout bounds a single call. Zero means no extra deadline.
	Timeout          time.Duration
	FailureThreshold int
	OpenTimeout      time.Duration
	Recorder         Recorder
	Events           CallEvents
	Clock            clock.Clock
}

// Guarded wraps a Completer with a circuit breaker, a per-call timeout,
// metrics and a trace span. It never retries.
type Guarded struct {
	next     Completer
	breaker  *circuitbreaker.CircuitBreaker
	timeout  time.Duration
	recorder Recorder
	events   CallEvents
	clock    clock.Clock
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewGuarded wraps next.
func NewGuarded(next Completer, cfg GuardConfig, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	cbConfig := circuitbreaker.DefaultConfig()
	if cfg.FailureThreshold > 0 {
		cbConfig.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.OpenTimeout > 0 {
		cbConfig.OpenTimeout = cfg.OpenTimeout
	}
	cbConfig.Clock = clk
	if cfg.Recorder != nil {
		cbConfig.OnStateChange = cfg.Recorder.BreakerStateChanged
	}
	return &Guarded{
		next:     next,
		breaker:  circuitbreaker.New(next.Name(), cbConfig, logger),
		timeout:  cfg.Timeout,
		recorder: cfg.Recorder,
		events:   cfg.Events,
		clock:    clk,
		tracer:   otel.Tracer("github.com/jkindrix/draftwise/internal/ai"),
		logger:   logger,
	}
}

// Name returns the wrapped provider's name.
func (g *Guarded) Name() string { return g.next.Name() }

// Breaker exposes the circuit breaker for health reporting.
func (g *Guarded) Breaker() *circuitbreaker.CircuitBreaker { return g.breaker }

// Complete runs the wrapped call under the breaker.
func (g *Guarded) Complete(ctx context.Context, prompt Prompt) (string, error) {
	ctx, span := g.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", g.next.Name()),
		attribute.String("llm.operation", prompt.Operation),
		attribute.Bool("llm.json", prompt.JSON),
	))
	defer span.End()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := g.clock.Now()
	var text string
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = g.next.Complete(ctx, prompt)
		return err
	})
	duration := g.clock.Since(start)
	outcome := classifyOutcome(err)

	if g.recorder != nil {
		g.recorder.RecordLLMRequest(g.next.Name(), prompt.Operation, outcome, duration)
	}
	if g.events != nil {
		g.events.ExternalAPICall(ctx, g.next.Name(), prompt.Operation, duration, err == nil)
	}
	span.SetAttributes(attribute.String("llm.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		g.logger.Warn("llm call failed",
			zap.String("provider", g.next.Name()),
			zap.String("operation", prompt.Operation),
			zap.String("outcome", outcome),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
	return text, nil
}

func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return OutcomeCircuitOpen
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, ErrQuotaExceeded):
		return OutcomeQuotaExceeded
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeFailure
	}
}
