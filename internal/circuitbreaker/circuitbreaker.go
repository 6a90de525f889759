// Package circuitbreaker guards calls to language model providers so that an
// unhealthy provider fails fast instead of stalling every wizard turn.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation, requests go through
	StateOpen                  // Circuit is open, requests fail fast
	StateHalfOpen              // Testing if the provider has recovered
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Errors returned by the circuit breaker.
var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds circuit breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes needed in half-open to close.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before testing recovery.
	OpenTimeout time.Duration
	// HalfOpenMaxRequests is the maximum number of requests allowed in half-open state.
	HalfOpenMaxRequests int
	// IsFailure decides whether an error counts against the circuit.
	// Defaults to CountsAsFailure.
	IsFailure func(error) bool
	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(name string, from, to State)
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

// DefaultConfig returns sensible defaults for a provider circuit breaker.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxRequests: 2,
	}
}

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	mu     sync.Mutex
	name   string
	config Config
	clock  clock.Clock
	logger *zap.Logger

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenRequests     int
	openedAt             time.Time
	lastStateChange      time.Time
	lastError            error

	totalRequests  int64
	totalFailures  int64
	totalRejected  int64
	totalNeutral   int64
	totalSuccesses int64
}

// New creates a new circuit breaker.
func New(name string, config *Config, logger *zap.Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.IsFailure == nil {
		cfg.IsFailure = CountsAsFailure
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		name:            name,
		config:          cfg,
		clock:           cfg.Clock,
		logger:          logger,
		state:           StateClosed,
		lastStateChange: cfg.Clock.Now(),
	}
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn within the breaker's protection. It returns ErrCircuitOpen
// or ErrTooManyRequests without calling fn when the circuit refuses traffic.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.afterRequest(err)
	return err
}

type transition struct {
	from, to State
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	var tr *transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(tr)
	}()

	cb.totalRequests++
	switch cb.state {
	case StateOpen:
		elapsed := cb.clock.Since(cb.openedAt)
		if elapsed < cb.config.OpenTimeout {
			cb.totalRejected++
			return ErrCircuitOpen
		}
		tr = cb.setState(StateHalfOpen)
		cb.halfOpenRequests = 1
		cb.logger.Info("circuit breaker half-open",
			zap.String("name", cb.name),
			zap.Duration("after", elapsed),
		)
	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.config.HalfOpenMaxRequests {
			cb.totalRejected++
			return ErrTooManyRequests
		}
		cb.halfOpenRequests++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	var tr *transition
	defer func() {
		cb.mu.Unlock()
		cb.notify(tr)
	}()

	switch {
	case err == nil:
		tr = cb.recordSuccess()
	case cb.config.IsFailure(err):
		tr = cb.recordFailure(err)
	default:
		// Neutral: frees the half-open slot without moving the counters.
		cb.totalNeutral++
		if cb.state == StateHalfOpen && cb.halfOpenRequests > 0 {
			cb.halfOpenRequests--
		}
	}
}

func (cb *CircuitBreaker) recordFailure(err error) *transition {
	cb.totalFailures++
	cb.consecutiveFailures++
	cb.consecutiveSuccesses = 0
	cb.lastError = err

	switch cb.state {
	case StateClosed:
		if cb.consecutiveFailures >= cb.config.FailureThreshold {
			failures := cb.consecutiveFailures
			tr := cb.setState(StateOpen)
			cb.logger.Warn("circuit breaker opened",
				zap.String("name", cb.name),
				zap.Int("consecutive_failures", failures),
				zap.Error(err),
			)
			return tr
		}
	case StateHalfOpen:
		tr := cb.setState(StateOpen)
		cb.logger.Warn("circuit breaker reopened from half-open",
			zap.String("name", cb.name),
			zap.Error(err),
		)
		return tr
	}
	return nil
}

func (cb *CircuitBreaker) recordSuccess() *transition {
	cb.totalSuccesses++
	cb.consecutiveSuccesses++
	cb.consecutiveFailures = 0

	if cb.state == StateHalfOpen && cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
		tr := cb.setState(StateClosed)
		cb.logger.Info("circuit breaker closed", zap.String("name", cb.name))
		return tr
	}
	return nil
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(to State) *transition {
	from := cb.state
	now := cb.clock.Now()
	cb.state = to
	cb.lastStateChange = now
	if to == StateOpen {
		cb.openedAt = now
	}
	cb.consecutiveFailures = 0
	cb.consecutiveSuccesses = 0
	cb.halfOpenRequests = 0
	if from == to {
		return nil
	}
	return &transition{from: from, to: to}
}

func (cb *CircuitBreaker) notify(tr *transition) {
	if tr != nil && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, tr.from, tr.to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// IsOpen returns true if the circuit is open.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// Stats holds circuit breaker statistics.
type Stats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	TotalRequests   int64     `json:"total_requests"`
	TotalSuccesses  int64     `json:"total_successes"`
	TotalFailures   int64     `json:"total_failures"`
	TotalRejected   int64     `json:"total_rejected"`
	TotalNeutral    int64     `json:"total_neutral"`
	LastStateChange time.Time `json:"last_state_change"`
	LastError       string    `json:"last_error,omitempty"`
}

// Stats returns current circuit breaker statistics.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	var lastError string
	if cb.lastError != nil {
		lastError = cb.lastError.Error()
	}
	return Stats{
		Name:            cb.name,
		State:           cb.state.String(),
		TotalRequests:   cb.totalRequests,
		TotalSuccesses:  cb.totalSuccesses,
		TotalFailures:   cb.totalFailures,
		TotalRejected:   cb.totalRejected,
		TotalNeutral:    cb.totalNeutral,
		LastStateChange: cb.lastStateChange,
		LastError:       lastError,
	}
}

// Reset forces the circuit breaker to the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	tr := cb.setState(StateClosed)
	cb.lastError = nil
	cb.mu.Unlock()

	cb.logger.Info("circuit breaker reset", zap.String("name", cb.name))
	cb.notify(tr)
}

// CountsAsFailure reports whether err reflects provider health. Caller
// cancellation and the breaker's own refusals do not.
func CountsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		return false
	}
	return true
}
