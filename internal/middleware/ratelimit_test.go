package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/clock"
)

func TestRateLimiter_Allow(t *testing.T) {
	logger := zap.NewNop()
	rl := NewRateLimiter(5, time.Minute, logger)
	defer rl.Close()

	ip := "192.168.1.1"

	// First 5 requests should be allowed
	for i := 0; i < 5; i++ {
		if !rl.allow(ip) {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	// 6th request should be blocked
	if rl.allow(ip) {
		t.Error("6th request should be blocked")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	logger := zap.NewNop()
	rl := NewRateLimiter(5, time.Minute, logger)

	ip := "192.168.1.1"

	// Initial remaining should be max rate
	if r := rl.remaining(ip); r != 5 {
		t.Errorf("expected 5 remaining, got %d", r)
	}

	// After one request
	rl.allow(ip)
	if r := rl.remaining(ip); r != 4 {
		t.Errorf("expected 4 remaining, got %d", r)
	}
}

func TestRateLimiter_DifferentIPs(t *testing.T) {
	logger := zap.NewNop()
	rl := NewRateLimiter(2, time.Minute, logger)

	ip1 := "192.168.1.1"
	ip2 := "192.168.1.2"

	// Exhaust ip1's rate limit
	rl.allow(ip1)
	rl.allow(ip1)
	if rl.allow(ip1) {
		t.Error("ip1 should be blocked")
	}

	// ip2 should still have full quota
	if !rl.allow(ip2) {
		t.Error("ip2 should be allowed")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	logger := zap.NewNop()
	rl := NewRateLimiter(2, time.Minute, logger)

	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First 2 requests should succeed
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("request %d: expected status %d, got %d", i+1, http.StatusOK, rr.Code)
		}
	}

	// 3rd request should be rate limited
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rr.Code)
	}

	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header to be set")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{
			name:       "RemoteAddr only",
			remoteAddr: "192.168.1.1:12345",
			expected:   "192.168.1.1",
		},
		{
			name:       "X-Forwarded-For single",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1"},
			remoteAddr: "192.168.1.1:12345",
			expected:   "10.0.0.1",
		},
		{
			name:       "X-Forwarded-For multiple",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2, 10.0.0.3"},
			remoteAddr: "192.168.1.1:12345",
			expected:   "10.0.0.1",
		},
		{
			name:       "X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "10.0.0.1"},
			remoteAddr: "192.168.1.1:12345",
			expected:   "10.0.0.1",
		},
		{
			name:       "X-Forwarded-For takes precedence over X-Real-IP",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1", "X-Real-IP": "10.0.0.2"},
			remoteAddr: "192.168.1.1:12345",
			expected:   "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := getClientIP(req); got != tt.expected {
				t.Errorf("getClientIP() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

type hitCounter struct{ n int }

func (h *hitCounter) RecordRateLimitHit(string) { h.n++ }

func TestRateLimiter_WindowResets(t *testing.T) {
	clk := clock.NewMock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(1, time.Minute, zap.NewNop()).WithClock(clk)
	defer rl.Close()

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Fatal("second request should be blocked")
	}
	if got := rl.retryAfter("10.0.0.1"); got != 60 {
		t.Errorf("retryAfter = %d, want 60", got)
	}

	clk.Advance(time.Minute)
	if !rl.allow("10.0.0.1") {
		t.Error("request after window should be allowed")
	}
}

func TestRateLimiter_SweepDropsIdleVisitors(t *testing.T) {
	clk := clock.NewMock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	rl := NewRateLimiter(3, time.Minute, zap.NewNop()).WithClock(clk)
	defer rl.Close()

	rl.allow("10.0.0.1")
	clk.Advance(3 * time.Minute)
	rl.sweep()

	rl.mu.RLock()
	n := len(rl.visitors)
	rl.mu.RUnlock()
	if n != 0 {
		t.Errorf("visitors = %d, want 0", n)
	}
}

func TestRateLimit_RecordsHitsAndWritesJSON(t *testing.T) {
	hits := &hitCounter{}
	rl := NewRateLimiter(1, time.Minute, zap.NewNop()).WithHitRecorder(hits)
	defer rl.Close()

	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil)
		req.RemoteAddr = "10.1.1.1:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if i == 1 {
			if rr.Code != http.StatusTooManyRequests {
				t.Fatalf("status = %d, want 429", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), "RATE_LIMITED") {
				t.Errorf("body = %s, want RATE_LIMITED code", rr.Body.String())
			}
		}
	}
	if hits.n != 1 {
		t.Errorf("hits = %d, want 1", hits.n)
	}
}
