package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLocalFixedWindowLimiter(t *testing.T) {
	limiter := NewLocalFixedWindowLimiter()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(ctx, "1.2.3.4", 2, time.Minute)
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	allowed, retryAfter, err := limiter.Allow(ctx, "1.2.3.4", 2, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("expected third request denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("unexpected retry-after %v", retryAfter)
	}

	// a different key gets its own window
	if allowed, _, _ := limiter.Allow(ctx, "5.6.7.8", 2, time.Minute); !allowed {
		t.Fatal("independent key should be allowed")
	}
}

func TestRateLimiterMiddlewareDenies(t *testing.T) {
	handler := NewRateLimiter(1, time.Minute).Middleware()(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if code := decodeErrCode(t, rr.Body.String()); code != "RATE_LIMITED" {
		t.Fatalf("unexpected error code %q", code)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return false, 0, errors.New("backend down")
}

func TestRateLimiterFailureModes(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	open := NewDistributedRateLimiter(failingLimiter{}, 10, time.Minute, FailOpen, "api").Middleware()(next)
	rr := httptest.NewRecorder()
	open.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("fail-open should allow, got %d", rr.Code)
	}

	closed := NewDistributedRateLimiter(failingLimiter{}, 10, time.Minute, FailClosed, "api").Middleware()(next)
	rr = httptest.NewRecorder()
	closed.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("fail-closed should deny, got %d", rr.Code)
	}
}
