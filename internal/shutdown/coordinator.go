// Package shutdown sequences graceful shutdown of the server's components:
// stop taking traffic, drain HTTP and websocket streams, close the session
// store and event bus, then flush tracing and close the database.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service represents a component that can be shut down gracefully.
type Service interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// ServiceFunc wraps a function to implement the Service interface.
type ServiceFunc struct {
	ServiceName string
	ShutdownFn  func(ctx context.Context) error
}

func (s ServiceFunc) Name() string                       { return s.ServiceName }
func (s ServiceFunc) Shutdown(ctx context.Context) error { return s.ShutdownFn(ctx) }

// Phase orders shutdown. Services in the same phase stop concurrently.
type Phase int

const (
	// PhasePreDrain stops accepting new work (readiness flips first).
	PhasePreDrain Phase = iota
	// PhaseDrain waits for in-flight HTTP requests and streams.
	PhaseDrain
	// PhaseShutdown stops background components such as the session store.
	PhaseShutdown
	// PhaseCleanup flushes exporters and closes connections.
	PhaseCleanup
)

var phases = []Phase{PhasePreDrain, PhaseDrain, PhaseShutdown, PhaseCleanup}

func (p Phase) String() string {
	switch p {
	case PhasePreDrain:
		return "pre-drain"
	case PhaseDrain:
		return "drain"
	case PhaseShutdown:
		return "shutdown"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Coordinator manages graceful shutdown of multiple services.
type Coordinator struct {
	mu       sync.Mutex
	services map[Phase][]Service
	timeout  time.Duration
	logger   *zap.Logger

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	err          error
}

// Config holds configuration for the shutdown coordinator.
type Config struct {
	// Timeout is the total time allowed for all phases.
	Timeout time.Duration
}

// DefaultConfig returns the default shutdown budget.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}

// NewCoordinator creates a new shutdown coordinator.
func NewCoordinator(cfg *Config, logger *zap.Logger) *Coordinator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		services:   make(map[Phase][]Service),
		timeout:    cfg.Timeout,
		logger:     logger,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Register adds a service to be shut down in the given phase.
func (c *Coordinator) Register(phase Phase, svc Service) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.services[phase] = append(c.services[phase], svc)
	c.logger.Debug("registered service for shutdown",
		zap.String("service", svc.Name()),
		zap.String("phase", phase.String()),
	)
}

// RegisterFunc registers a shutdown function.
func (c *Coordinator) RegisterFunc(phase Phase, name string, fn func(ctx context.Context) error) {
	c.Register(phase, ServiceFunc{ServiceName: name, ShutdownFn: fn})
}

// Shutdown runs all phases once and waits for them, or for ctx. The returned
// error joins every service failure. Later calls wait for the first run.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		close(c.shutdownCh)
		go c.runShutdown()
	})

	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownCh returns a channel that's closed when shutdown is initiated.
func (c *Coordinator) ShutdownCh() <-chan struct{} {
	return c.shutdownCh
}

// Done returns a channel that's closed when every phase has run.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) runShutdown() {
	defer close(c.done)

	// The budget is independent of the caller's context.
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.logger.Info("starting graceful shutdown",
		zap.Duration("timeout", c.timeout),
	)

	var errs []error
	for _, phase := range phases {
		c.mu.Lock()
		services := c.services[phase]
		c.mu.Unlock()

		if len(services) == 0 {
			continue
		}

		c.logger.Info("executing shutdown phase",
			zap.String("phase", phase.String()),
			zap.Int("services", len(services)),
		)

		errs = append(errs, c.shutdownPhase(ctx, phase, services)...)

		if ctx.Err() != nil {
			c.logger.Error("shutdown timeout exceeded",
				zap.String("phase", phase.String()),
				zap.Error(ctx.Err()),
			)
			errs = append(errs, fmt.Errorf("phase %s: %w", phase, ctx.Err()))
			break
		}
	}

	c.err = errors.Join(errs...)
	if c.err != nil {
		c.logger.Error("shutdown completed with errors",
			zap.Int("error_count", len(errs)),
			zap.Error(c.err),
		)
	} else {
		c.logger.Info("graceful shutdown complete")
	}
}

// shutdownPhase stops every service in a phase concurrently. One failure
// does not cancel its siblings.
func (c *Coordinator) shutdownPhase(ctx context.Context, phase Phase, services []Service) []error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, svc := range services {
		g.Go(func() error {
			start := time.Now()
			c.logger.Debug("shutting down service",
				zap.String("service", svc.Name()),
				zap.String("phase", phase.String()),
			)

			if err := svc.Shutdown(ctx); err != nil {
				c.logger.Error("service shutdown failed",
					zap.String("service", svc.Name()),
					zap.String("phase", phase.String()),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", svc.Name(), err))
				mu.Unlock()
				return nil
			}

			c.logger.Debug("service shutdown complete",
				zap.String("service", svc.Name()),
				zap.String("phase", phase.String()),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		})
	}

	_ = g.Wait()
	return errs
}

// HealthState represents the shutdown health state.
type HealthState int

const (
	HealthStateHealthy HealthState = iota
	HealthStateDraining
	HealthStateShuttingDown
)

func (h HealthState) String() string {
	switch h {
	case HealthStateHealthy:
		return "healthy"
	case HealthStateDraining:
		return "draining"
	case HealthStateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// ReadinessGate reports not-ready as soon as shutdown begins, so load
// balancers stop routing new sessions here.
type ReadinessGate struct {
	coordinator *Coordinator
	state       HealthState
	mu          sync.RWMutex
}

// NewReadinessGate creates a new readiness gate.
func NewReadinessGate(coordinator *Coordinator) *ReadinessGate {
	rg := &ReadinessGate{
		coordinator: coordinator,
		state:       HealthStateHealthy,
	}

	go rg.watchShutdown()

	return rg
}

func (rg *ReadinessGate) watchShutdown() {
	<-rg.coordinator.ShutdownCh()
	rg.mu.Lock()
	if rg.state == HealthStateHealthy {
		rg.state = HealthStateDraining
	}
	rg.mu.Unlock()
}

// SetState sets the health state.
func (rg *ReadinessGate) SetState(state HealthState) {
	rg.mu.Lock()
	rg.state = state
	rg.mu.Unlock()
}

// IsReady returns true if the service is ready to accept traffic.
func (rg *ReadinessGate) IsReady() bool {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return rg.state == HealthStateHealthy
}

// State returns the current health state.
func (rg *ReadinessGate) State() HealthState {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	return rg.state
}
