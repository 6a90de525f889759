package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
)

var errUpstream = errors.New("upstream 503")

type recordedTransition struct {
	from, to State
}

type transitionRecorder struct {
	mu  sync.Mutex
	got []recordedTransition
}

func (r *transitionRecorder) record(_ string, from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, recordedTransition{from, to})
}

func (r *transitionRecorder) all() []recordedTransition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedTransition(nil), r.got...)
}

func newTestBreaker(mock *clock.Mock, rec *transitionRecorder) *CircuitBreaker {
	cfg := &Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		OpenTimeout:         10 * time.Second,
		HalfOpenMaxRequests: 2,
		Clock:               mock,
	}
	if rec != nil {
		cfg.OnStateChange = rec.record
	}
	return New("anthropic", cfg, zap.NewNop())
}

func fail(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return errUpstream })
	}
}

func succeed(cb *CircuitBreaker) error {
	return cb.Execute(context.Background(), func(context.Context) error { return nil })
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb := newTestBreaker(clock.NewMock(time.Now()), nil)

	if cb.State() != StateClosed {
		t.Errorf("expected initial state %v, got %v", StateClosed, cb.State())
	}
	if cb.IsOpen() {
		t.Error("circuit should not be open initially")
	}
	if cb.Name() != "anthropic" {
		t.Errorf("Name() = %q", cb.Name())
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	rec := &transitionRecorder{}
	cb := newTestBreaker(clock.NewMock(time.Now()), rec)

	fail(cb, 2)
	if cb.State() != StateClosed {
		t.Fatalf("opened early after 2 failures")
	}
	fail(cb, 1)
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %v", cb.State())
	}

	got := rec.all()
	if len(got) != 1 || got[0].from != StateClosed || got[0].to != StateOpen {
		t.Errorf("transitions = %v", got)
	}
}

func TestCircuitBreaker_RejectsWhenOpen(t *testing.T) {
	cb := newTestBreaker(clock.NewMock(time.Now()), nil)
	fail(cb, 3)

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("function ran while circuit open")
	}
	if cb.Stats().TotalRejected != 1 {
		t.Errorf("TotalRejected = %d", cb.Stats().TotalRejected)
	}
}

func TestCircuitBreaker_HalfOpenThenClosed(t *testing.T) {
	mock := clock.NewMock(time.Now())
	rec := &transitionRecorder{}
	cb := newTestBreaker(mock, rec)
	fail(cb, 3)

	mock.Advance(11 * time.Second)
	if err := succeed(cb); err != nil {
		t.Fatalf("trial call failed: %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after one trial call, got %v", cb.State())
	}
	if err := succeed(cb); err != nil {
		t.Fatalf("second trial call failed: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %v", cb.State())
	}

	want := []recordedTransition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}
	got := rec.all()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("transitions = %v, want %v", got, want)
	}
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	mock := clock.NewMock(time.Now())
	cb := newTestBreaker(mock, nil)
	fail(cb, 3)

	mock.Advance(11 * time.Second)
	fail(cb, 1)
	if cb.State() != StateOpen {
		t.Fatalf("expected reopened, got %v", cb.State())
	}

	// The open window restarts from the reopen.
	mock.Advance(5 * time.Second)
	if err := succeed(cb); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen inside new window, got %v", err)
	}
}

func TestCircuitBreaker_HalfOpenLimitsRequests(t *testing.T) {
	mock := clock.NewMock(time.Now())
	cb := newTestBreaker(mock, nil)
	fail(cb, 3)
	mock.Advance(11 * time.Second)

	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(context.Background(), func(context.Context) error {
				entered <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-entered
	<-entered

	if err := succeed(cb); !errors.Is(err, ErrTooManyRequests) {
		t.Errorf("expected ErrTooManyRequests, got %v", err)
	}
	close(release)
	wg.Wait()
}

func TestCircuitBreaker_CancellationIsNeutral(t *testing.T) {
	cb := newTestBreaker(clock.NewMock(time.Now()), nil)

	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error {
			return fmt.Errorf("validate answer: %w", context.Canceled)
		})
	}
	if cb.State() != StateClosed {
		t.Errorf("caller cancellation opened the circuit")
	}
	if cb.Stats().TotalNeutral != 5 {
		t.Errorf("TotalNeutral = %d, want 5", cb.Stats().TotalNeutral)
	}
}

func TestCircuitBreaker_CustomFailureClassifier(t *testing.T) {
	errBadRequest := errors.New("400 bad request")
	cb := New("openai", &Config{
		FailureThreshold: 1,
		OpenTimeout:      time.Second,
		IsFailure: func(err error) bool {
			return !errors.Is(err, errBadRequest)
		},
	}, nil)

	_ = cb.Execute(context.Background(), func(context.Context) error { return errBadRequest })
	if cb.State() != StateClosed {
		t.Error("client error should not open the circuit")
	}
	_ = cb.Execute(context.Background(), func(context.Context) error { return errUpstream })
	if cb.State() != StateOpen {
		t.Error("server error should open the circuit")
	}
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	cb := newTestBreaker(clock.NewMock(time.Now()), nil)

	fail(cb, 2)
	_ = succeed(cb)
	fail(cb, 2)

	if cb.State() != StateClosed {
		t.Error("non-consecutive failures opened the circuit")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	rec := &transitionRecorder{}
	cb := newTestBreaker(clock.NewMock(time.Now()), rec)
	fail(cb, 3)

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("expected closed after reset, got %v", cb.State())
	}
	if cb.Stats().LastError != "" {
		t.Errorf("LastError = %q after reset", cb.Stats().LastError)
	}
	got := rec.all()
	if len(got) != 2 || got[1].to != StateClosed {
		t.Errorf("transitions = %v", got)
	}
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := newTestBreaker(clock.NewMock(time.Now()), nil)
	_ = succeed(cb)
	fail(cb, 1)

	stats := cb.Stats()
	if stats.Name != "anthropic" || stats.State != "closed" {
		t.Errorf("stats = %+v", stats)
	}
	if stats.TotalRequests != 2 || stats.TotalSuccesses != 1 || stats.TotalFailures != 1 {
		t.Errorf("counters = %+v", stats)
	}
	if stats.LastError != errUpstream.Error() {
		t.Errorf("LastError = %q", stats.LastError)
	}
}

func TestCountsAsFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"wrapped canceled", fmt.Errorf("call: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, true},
		{"circuit open", ErrCircuitOpen, false},
		{"too many", ErrTooManyRequests, false},
		{"upstream", errUpstream, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountsAsFailure(tt.err); got != tt.want {
				t.Errorf("CountsAsFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	cb := New("gemini", nil, nil)
	if cb.config.FailureThreshold != 5 || cb.config.OpenTimeout != 30*time.Second {
		t.Errorf("config = %+v", cb.config)
	}
	if cb.config.IsFailure == nil || cb.clock == nil {
		t.Error("defaults not applied")
	}
}
