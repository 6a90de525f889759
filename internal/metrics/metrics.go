// Package metrics provides Prometheus metrics collection for the application.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jkindrix/draftwise/internal/circuitbreaker"
	"github.com/jkindrix/draftwise/internal/conversation"
	"github.com/jkindrix/draftwise/internal/domain"
)

// Outcome/status label values for metrics.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Session end reasons.
const (
	EndCompleted = "completed"
	EndAbandoned = "abandoned"
	EndExpired   = "expired"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Wizard metrics
	TurnOutcomesTotal     *prometheus.CounterVec
	TurnDuration          *prometheus.HistogramVec
	RemoteValidationTotal *prometheus.CounterVec
	SummariesTotal        *prometheus.CounterVec
	CompletionsTotal      *prometheus.CounterVec
	SessionsActive        prometheus.Gauge
	SessionsTotal         *prometheus.CounterVec
	SessionsEnded         *prometheus.CounterVec

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram

	// Language model metrics
	LLMRequestsTotal    *prometheus.CounterVec
	LLMRequestDuration  *prometheus.HistogramVec
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHitsTotal *prometheus.CounterVec
	RateLimitCurrent   *prometheus.GaugeVec

	// Registry used for this metrics instance (nil means default registry)
	registry prometheus.Gatherer
}

// NewMetrics creates a new Metrics instance with all collectors registered.
func NewMetrics() *Metrics {
	m := newMetricsWithRegistry(prometheus.DefaultRegisterer)
	m.registry = prometheus.DefaultGatherer
	return m
}

// NewMetricsWithRegistry creates metrics using a custom registry (for testing).
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := newMetricsWithRegistry(reg)
	m.registry = reg
	return m
}

func newMetricsWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status code",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "draftwise_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "draftwise_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		TurnOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_turns_total",
				Help: "Conversation turn outcomes by content type",
			},
			[]string{"content_type", "outcome"},
		),
		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "draftwise_turn_duration_seconds",
				Help:    "Wall time of one conversation turn including collaborator calls",
				Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"event"},
		),
		RemoteValidationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_remote_validation_total",
				Help: "Answers reaching the remote validator by result",
			},
			[]string{"outcome"}, // "accepted", "rejected", "failed_open"
		),
		SummariesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_summaries_total",
				Help: "Confirmation summaries by source",
			},
			[]string{"source"}, // "remote", "fallback"
		),
		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_completions_total",
				Help: "Finalize attempts by content type and outcome",
			},
			[]string{"content_type", "outcome"},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "draftwise_sessions_active",
				Help: "Number of live wizard sessions",
			},
		),
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_sessions_total",
				Help: "Wizard sessions started by content type",
			},
			[]string{"content_type"},
		),
		SessionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_sessions_ended_total",
				Help: "Wizard sessions removed from the store by reason",
			},
			[]string{"reason"}, // "completed", "abandoned", "expired"
		),

		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_generations_total",
				Help: "Content generation attempts by content type, mode, and outcome",
			},
			[]string{"content_type", "mode", "outcome"},
		),
		GenerationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "draftwise_generation_duration_seconds",
				Help:    "Time taken to generate content",
				Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120},
			},
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_llm_requests_total",
				Help: "Language model calls by provider, operation, and outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "draftwise_llm_request_duration_seconds",
				Help:    "Duration of language model calls",
				Buckets: []float64{.25, .5, 1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"provider", "operation"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "draftwise_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_circuit_breaker_trips_total",
				Help: "Total number of times a circuit breaker has opened",
			},
			[]string{"name"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "draftwise_db_query_duration_seconds",
				Help:    "Duration of database queries",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		DBQueryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_db_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draftwise_rate_limit_hits_total",
				Help: "Total number of rate limit hits by limiter",
			},
			[]string{"limiter"}, // "http", "generation"
		),
		RateLimitCurrent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "draftwise_rate_limit_current",
				Help: "Current rate limit usage",
			},
			[]string{"limiter", "window"}, // window: "minute", "hour", "day", "concurrent"
		),
	}
}

// Handler returns the Prometheus HTTP handler for scraping metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware returns an HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := routePattern(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets websocket upgrades pass through the metrics middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.written = true
	return h.Hijack()
}

// routePattern prefers the matched chi pattern to keep label cardinality low.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath collapses ids in paths that were not routed through chi.
func normalizePath(path string) string {
	switch path {
	case "/", "/health", "/ready", "/live", "/metrics":
		return path
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 4 && parts[0] == "api" {
		switch parts[2] {
		case "sessions", "generations":
			parts[3] = "{id}"
		case "schedules":
			parts[3] = "{type}"
		}
		return "/" + strings.Join(parts, "/")
	}
	if len(parts) > 0 && parts[0] == "api" {
		return path
	}
	return "other"
}

// ObserveOutcome implements conversation.Observer.
func (m *Metrics) ObserveOutcome(contentType domain.ContentType, outcome conversation.Outcome) {
	m.TurnOutcomesTotal.WithLabelValues(string(contentType), string(outcome)).Inc()
	switch outcome {
	case conversation.OutcomeRemoteAccepted:
		m.RemoteValidationTotal.WithLabelValues("accepted").Inc()
	case conversation.OutcomeRemoteRejected:
		m.RemoteValidationTotal.WithLabelValues("rejected").Inc()
	case conversation.OutcomeFailedOpen:
		m.RemoteValidationTotal.WithLabelValues("failed_open").Inc()
	case conversation.OutcomeSummarized:
		m.SummariesTotal.WithLabelValues("remote").Inc()
	case conversation.OutcomeFallbackSummary:
		m.SummariesTotal.WithLabelValues("fallback").Inc()
	case conversation.OutcomeCompleted:
		m.CompletionsTotal.WithLabelValues(string(contentType), outcomeSuccess).Inc()
	case conversation.OutcomeCompletionFailed:
		m.CompletionsTotal.WithLabelValues(string(contentType), outcomeFailure).Inc()
	}
}

// ObserveTurn implements conversation.Observer.
func (m *Metrics) ObserveTurn(_ domain.ContentType, event string, duration time.Duration) {
	m.TurnDuration.WithLabelValues(event).Observe(duration.Seconds())
}

// RecordSessionStarted records a new wizard session.
func (m *Metrics) RecordSessionStarted(contentType domain.ContentType) {
	m.SessionsTotal.WithLabelValues(string(contentType)).Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnded records a session leaving the store.
func (m *Metrics) RecordSessionEnded(reason string) {
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()
}

// RecordGeneration records a content generation attempt.
func (m *Metrics) RecordGeneration(contentType domain.ContentType, mode string, success bool, duration time.Duration) {
	outcome := outcomeFailure
	if success {
		outcome = outcomeSuccess
	}
	m.GenerationsTotal.WithLabelValues(string(contentType), mode, outcome).Inc()
	m.GenerationDuration.Observe(duration.Seconds())
}

// RecordLLMRequest records one language model call. outcome is "success",
// "failure", "rate_limited", "quota_exceeded" or "circuit_open".
func (m *Metrics) RecordLLMRequest(provider, operation, outcome string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// BreakerStateChanged is wired as circuitbreaker.Config.OnStateChange.
func (m *Metrics) BreakerStateChanged(name string, _, to circuitbreaker.State) {
	var v float64
	switch to {
	case circuitbreaker.StateHalfOpen:
		v = 1
	case circuitbreaker.StateOpen:
		v = 2
		m.CircuitBreakerTrips.WithLabelValues(name).Inc()
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}

// RecordDBQuery records a database query.
func (m *Metrics) RecordDBQuery(operation string, duration time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(limiter string) {
	m.RateLimitHitsTotal.WithLabelValues(limiter).Inc()
}

// SetRateLimitUsage sets current rate limit usage.
func (m *Metrics) SetRateLimitUsage(limiter, window string, current float64) {
	m.RateLimitCurrent.WithLabelValues(limiter, window).Set(current)
}
