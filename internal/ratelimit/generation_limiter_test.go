package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
)

type recordingReporter struct {
	mu    sync.Mutex
	hits  int
	usage map[string]float64
}

func (r *recordingReporter) RecordRateLimitHit(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *recordingReporter) SetRateLimitUsage(_, window string, current float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.usage == nil {
		r.usage = make(map[string]float64)
	}
	r.usage[window] = current
}

func newTestLimiter(opts ...Option) *GenerationLimiter {
	cfg := &Config{
		PerMinute:     5,
		PerHour:       20,
		PerDay:        50,
		MaxConcurrent: 2,
	}
	return New(cfg, zap.NewNop(), opts...)
}

func TestGenerationLimiter_AcquireRelease(t *testing.T) {
	limiter := newTestLimiter()
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v, want nil", err)
	}
	if got := limiter.Stats().CurrentActive; got != 1 {
		t.Errorf("CurrentActive = %d, want 1", got)
	}

	limiter.Release()
	if got := limiter.Stats().CurrentActive; got != 0 {
		t.Errorf("CurrentActive = %d, want 0", got)
	}
}

func TestGenerationLimiter_ReleaseWithoutAcquire(t *testing.T) {
	limiter := newTestLimiter()
	limiter.Release()
	if got := limiter.Stats().CurrentActive; got != 0 {
		t.Errorf("CurrentActive = %d, want 0", got)
	}
}

func TestGenerationLimiter_ConcurrentLimit(t *testing.T) {
	limiter := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() %d error = %v", i, err)
		}
	}

	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrConcurrentLimitExceeded) {
		t.Errorf("Acquire() error = %v, want %v", err, ErrConcurrentLimitExceeded)
	}

	limiter.Release()
	if err := limiter.Acquire(ctx); err != nil {
		t.Errorf("Acquire() after release error = %v, want nil", err)
	}
}

func TestGenerationLimiter_MinuteWindowResets(t *testing.T) {
	clk := clock.NewMock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(WithClock(clk))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() %d error = %v", i, err)
		}
		limiter.Release()
	}

	err := limiter.Acquire(ctx)
	if !errors.Is(err, ErrMinuteLimitExceeded) {
		t.Fatalf("Acquire() error = %v, want %v", err, ErrMinuteLimitExceeded)
	}

	clk.Advance(time.Minute)
	if err := limiter.Acquire(ctx); err != nil {
		t.Errorf("Acquire() after window error = %v, want nil", err)
	}
}

func TestGenerationLimiter_HourLimitRollsBackMinute(t *testing.T) {
	clk := clock.NewMock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	limiter := New(&Config{PerMinute: 5, PerHour: 2, PerDay: 50, MaxConcurrent: 10}, nil, WithClock(clk))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() %d error = %v", i, err)
		}
	}

	if err := limiter.Acquire(ctx); !errors.Is(err, ErrHourLimitExceeded) {
		t.Fatalf("Acquire() error = %v, want %v", err, ErrHourLimitExceeded)
	}

	stats := limiter.Stats()
	if stats.MinuteRemaining != 3 {
		t.Errorf("MinuteRemaining = %d, want 3 after rollback", stats.MinuteRemaining)
	}
	if stats.HourResetIn != time.Hour {
		t.Errorf("HourResetIn = %v, want 1h", stats.HourResetIn)
	}
}

func TestGenerationLimiter_ErrorsWrapRateLimitExceeded(t *testing.T) {
	for _, err := range []error{
		ErrMinuteLimitExceeded,
		ErrHourLimitExceeded,
		ErrDayLimitExceeded,
		ErrConcurrentLimitExceeded,
	} {
		if !errors.Is(err, ErrRateLimitExceeded) {
			t.Errorf("%v does not wrap ErrRateLimitExceeded", err)
		}
	}
}

func TestGenerationLimiter_Stats(t *testing.T) {
	limiter := newTestLimiter()
	ctx := context.Background()

	_ = limiter.Acquire(ctx)
	_ = limiter.Acquire(ctx)
	_ = limiter.Acquire(ctx)

	stats := limiter.Stats()
	if stats.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", stats.TotalRequests)
	}
	if stats.TotalRejected != 1 {
		t.Errorf("TotalRejected = %d, want 1", stats.TotalRejected)
	}
	if stats.LastRejectionReason != "concurrent" {
		t.Errorf("LastRejectionReason = %q, want concurrent", stats.LastRejectionReason)
	}
	if stats.MinuteRemaining != 3 || stats.MinuteMax != 5 {
		t.Errorf("minute = %d/%d, want 3/5", stats.MinuteRemaining, stats.MinuteMax)
	}
}

func TestGenerationLimiter_Reporter(t *testing.T) {
	rep := &recordingReporter{}
	limiter := newTestLimiter(WithReporter(rep))
	ctx := context.Background()

	_ = limiter.Acquire(ctx)
	_ = limiter.Acquire(ctx)
	_ = limiter.Acquire(ctx)

	if rep.hits != 1 {
		t.Errorf("hits = %d, want 1", rep.hits)
	}
	if rep.usage["minute"] != 2 {
		t.Errorf("minute usage = %f, want 2", rep.usage["minute"])
	}
	if rep.usage["concurrent"] != 2 {
		t.Errorf("concurrent usage = %f, want 2", rep.usage["concurrent"])
	}
}

func TestGenerationLimiter_WaitHonorsContext(t *testing.T) {
	limiter := New(&Config{PerMinute: 10, PerHour: 10, PerDay: 10, MaxConcurrent: 1}, nil)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestGenerationLimiter_WaitSucceedsAfterRelease(t *testing.T) {
	limiter := New(&Config{PerMinute: 10, PerHour: 10, PerDay: 10, MaxConcurrent: 1}, nil)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("Wait() error = %v, want nil", err)
	}
}
