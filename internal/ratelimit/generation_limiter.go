// Package ratelimit caps how often and how concurrently content is
// generated, since every generation is a paid model call.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
)

// LimiterName labels this limiter in metrics.
const LimiterName = "generation"

// Errors for rate limiting. Every window error wraps ErrRateLimitExceeded.
var (
	ErrRateLimitExceeded       = errors.New("rate limit exceeded")
	ErrMinuteLimitExceeded     = fmt.Errorf("minute %w", ErrRateLimitExceeded)
	ErrHourLimitExceeded       = fmt.Errorf("hour %w", ErrRateLimitExceeded)
	ErrDayLimitExceeded        = fmt.Errorf("day %w", ErrRateLimitExceeded)
	ErrConcurrentLimitExceeded = fmt.Errorf("concurrent %w", ErrRateLimitExceeded)
)

// UsageReporter receives limiter usage. *metrics.Metrics satisfies it.
type UsageReporter interface {
	RecordRateLimitHit(limiter string)
	SetRateLimitUsage(limiter, window string, current float64)
}

// Config holds the generation limits.
type Config struct {
	PerMinute     int
	PerHour       int
	PerDay        int
	MaxConcurrent int
}

// DefaultConfig returns the stock generation limits.
func DefaultConfig() *Config {
	return &Config{
		PerMinute:     10,
		PerHour:       100,
		PerDay:        500,
		MaxConcurrent: 5,
	}
}

// GenerationLimiter combines fixed-window buckets with a concurrency cap.
type GenerationLimiter struct {
	mu sync.RWMutex

	cfg Config

	minute *tokenBucket
	hour   *tokenBucket
	day    *tokenBucket
	active int

	totalRequests   int64
	totalRejected   int64
	lastRejectedAt  time.Time
	rejectionReason string

	clock    clock.Clock
	reporter UsageReporter
	logger   *zap.Logger
}

// Option configures a GenerationLimiter.
type Option func(*GenerationLimiter)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(l *GenerationLimiter) { l.clock = c }
}

// WithReporter publishes usage after every acquire and rejection.
func WithReporter(r UsageReporter) Option {
	return func(l *GenerationLimiter) { l.reporter = r }
}

// New creates a generation limiter. A nil cfg uses DefaultConfig.
func New(cfg *Config, logger *zap.Logger, opts ...Option) *GenerationLimiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &GenerationLimiter{
		cfg:    *cfg,
		clock:  clock.New(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}

	now := l.clock.Now()
	l.minute = newTokenBucket(cfg.PerMinute, time.Minute, now)
	l.hour = newTokenBucket(cfg.PerHour, time.Hour, now)
	l.day = newTokenBucket(cfg.PerDay, 24*time.Hour, now)
	return l
}

// Acquire takes a slot or reports which limit was hit. Callers must
// Release after a successful Acquire.
func (l *GenerationLimiter) Acquire(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalRequests++
	now := l.clock.Now()

	if l.active >= l.cfg.MaxConcurrent {
		return l.reject("concurrent", now, ErrConcurrentLimitExceeded)
	}
	if !l.minute.tryAcquire(now) {
		return l.reject("minute", now, ErrMinuteLimitExceeded)
	}
	if !l.hour.tryAcquire(now) {
		l.minute.release()
		return l.reject("hour", now, ErrHourLimitExceeded)
	}
	if !l.day.tryAcquire(now) {
		l.minute.release()
		l.hour.release()
		return l.reject("day", now, ErrDayLimitExceeded)
	}

	l.active++
	l.report()

	l.logger.Debug("generation slot acquired",
		zap.Int("active", l.active),
		zap.Int("minute_remaining", l.minute.remaining()),
		zap.Int("hour_remaining", l.hour.remaining()),
		zap.Int("day_remaining", l.day.remaining()),
	)
	return nil
}

// Release returns a concurrency slot. Window tokens stay spent.
func (l *GenerationLimiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active > 0 {
		l.active--
	}
	l.report()
}

// Wait polls Acquire until it succeeds or ctx is done.
func (l *GenerationLimiter) Wait(ctx context.Context) error {
	if err := l.Acquire(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := l.Acquire(ctx); err == nil {
				return nil
			}
		}
	}
}

func (l *GenerationLimiter) reject(reason string, t time.Time, err error) error {
	l.totalRejected++
	l.lastRejectedAt = t
	l.rejectionReason = reason
	if l.reporter != nil {
		l.reporter.RecordRateLimitHit(LimiterName)
	}

	l.logger.Warn("generation rate limit exceeded",
		zap.String("reason", reason),
		zap.Int64("total_rejected", l.totalRejected),
	)
	return err
}

// report must be called with l.mu held.
func (l *GenerationLimiter) report() {
	if l.reporter == nil {
		return
	}
	l.reporter.SetRateLimitUsage(LimiterName, "minute", float64(l.minute.used()))
	l.reporter.SetRateLimitUsage(LimiterName, "hour", float64(l.hour.used()))
	l.reporter.SetRateLimitUsage(LimiterName, "day", float64(l.day.used()))
	l.reporter.SetRateLimitUsage(LimiterName, "concurrent", float64(l.active))
}

// Stats returns a snapshot of the limiter.
func (l *GenerationLimiter) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.clock.Now()
	return Stats{
		CurrentActive:       l.active,
		MaxConcurrent:       l.cfg.MaxConcurrent,
		MinuteRemaining:     l.minute.remainingAt(now),
		MinuteMax:           l.cfg.PerMinute,
		HourRemaining:       l.hour.remainingAt(now),
		HourMax:             l.cfg.PerHour,
		DayRemaining:        l.day.remainingAt(now),
		DayMax:              l.cfg.PerDay,
		TotalRequests:       l.totalRequests,
		TotalRejected:       l.totalRejected,
		LastRejectedAt:      l.lastRejectedAt,
		LastRejectionReason: l.rejectionReason,
		MinuteResetIn:       l.minute.resetIn(now),
		HourResetIn:         l.hour.resetIn(now),
		DayResetIn:          l.day.resetIn(now),
	}
}

// Stats holds statistics about the limiter.
type Stats struct {
	CurrentActive       int           `json:"current_active"`
	MaxConcurrent       int           `json:"max_concurrent"`
	MinuteRemaining     int           `json:"minute_remaining"`
	MinuteMax           int           `json:"minute_max"`
	HourRemaining       int           `json:"hour_remaining"`
	HourMax             int           `json:"hour_max"`
	DayRemaining        int           `json:"day_remaining"`
	DayMax              int           `json:"day_max"`
	TotalRequests       int64         `json:"total_requests"`
	TotalRejected       int64         `json:"total_rejected"`
	LastRejectedAt      time.Time     `json:"last_rejected_at,omitempty"`
	LastRejectionReason string        `json:"last_rejection_reason,omitempty"`
	MinuteResetIn       time.Duration `json:"minute_reset_in"`
	HourResetIn         time.Duration `json:"hour_reset_in"`
	DayResetIn          time.Duration `json:"day_reset_in"`
}

// tokenBucket refills completely once per period.
type tokenBucket struct {
	max       int
	period    time.Duration
	tokens    int
	lastReset time.Time
}

func newTokenBucket(maxTokens int, period time.Duration, now time.Time) *tokenBucket {
	return &tokenBucket{
		max:       maxTokens,
		period:    period,
		tokens:    maxTokens,
		lastReset: now,
	}
}

func (b *tokenBucket) tryAcquire(now time.Time) bool {
	b.refill(now)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (b *tokenBucket) release() {
	if b.tokens < b.max {
		b.tokens++
	}
}

func (b *tokenBucket) remaining() int {
	return b.tokens
}

func (b *tokenBucket) used() int {
	return b.max - b.tokens
}

// remainingAt reports tokens as of now without mutating the bucket.
func (b *tokenBucket) remainingAt(now time.Time) int {
	if now.Sub(b.lastReset) >= b.period {
		return b.max
	}
	return b.tokens
}

func (b *tokenBucket) resetIn(now time.Time) time.Duration {
	remaining := b.period - now.Sub(b.lastReset)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (b *tokenBucket) refill(now time.Time) {
	if now.Sub(b.lastReset) >= b.period {
		b.tokens = b.max
		b.lastReset = now
	}
}
