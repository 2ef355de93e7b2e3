package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter()
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiterAllow(t *testing.T) {
	rl, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		if ok, _ := rl.Allow("key", 5, time.Minute); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	clock.advance(20 * time.Second)
	ok, retry := rl.Allow("key", 5, time.Minute)
	if ok {
		t.Fatal("6th request should be denied")
	}
	if retry != 40*time.Second {
		t.Errorf("retry = %v, want 40s", retry)
	}

	if ok, _ := rl.Allow("other", 5, time.Minute); !ok {
		t.Error("other keys have their own window")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl, clock := newTestLimiter()

	for i := 0; i < 3; i++ {
		rl.Allow("key", 3, time.Minute)
	}
	if ok, _ := rl.Allow("key", 3, time.Minute); ok {
		t.Error("should be blocked within window")
	}

	clock.advance(time.Minute)
	if ok, _ := rl.Allow("key", 3, time.Minute); !ok {
		t.Error("should be allowed once the window resets")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, clock := newTestLimiter()

	rl.Allow("expired", 5, time.Second)
	rl.Allow("active", 5, time.Hour)
	clock.advance(2 * time.Second)

	if n := rl.Cleanup(); n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if _, ok := rl.windows["expired"]; ok {
		t.Error("expired window should have been removed")
	}
	if _, ok := rl.windows["active"]; !ok {
		t.Error("active window should still exist")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, clock := newTestLimiter()
	keyFunc := func(r *http.Request) string { return "test" }
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	signin := RateLimit(rl, "signin", keyFunc, 2, time.Minute)(ok)
	signup := RateLimit(rl, "signup", keyFunc, 2, time.Minute)(ok)

	serve := func(h http.Handler) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := serve(signin); rec.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	clock.advance(1500 * time.Millisecond)
	rec := serve(signin)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "59" {
		t.Errorf("Retry-After = %q, want 59", got)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("body = %q, want JSON error", rec.Body.String())
	}

	if rec := serve(signup); rec.Code != http.StatusOK {
		t.Errorf("other scope status = %d, want 200", rec.Code)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "3.3.3.3:1234", "1.1.1.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "2.2.2.2, 10.0.0.1"}, "3.3.3.3:1234", "2.2.2.2"},
		{"remote addr", nil, "3.3.3.3:1234", "3.3.3.3"},
		{"remote without port", nil, "3.3.3.3", "3.3.3.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := RealIP(req); got != tt.want {
				t.Errorf("RealIP = %q, want %q", got, tt.want)
			}
		})
	}
}
