package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func post(h http.Handler, remote string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.RemoteAddr = remote
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_AllowsWithinLimit(t *testing.T) {
	handler := RateLimit(NewClientRateLimiter(rate.Every(time.Second), 5), "contact")(okHandler())

	for i := 0; i < 5; i++ {
		if rec := post(handler, "192.168.1.1:12345", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimit_BlocksExcessRequests(t *testing.T) {
	handler := RateLimit(NewClientRateLimiter(rate.Every(time.Second), 2), "contact")(okHandler())

	for i := 0; i < 2; i++ {
		if rec := post(handler, "10.0.0.1:12345", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := post(handler, "10.0.0.1:12345", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "too many requests" {
		t.Fatalf("expected 'too many requests', got %q", body["error"])
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After: 60, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_SeparateClients(t *testing.T) {
	handler := RateLimit(NewClientRateLimiter(rate.Every(time.Minute), 1), "newsletter")(okHandler())

	if rec := post(handler, "10.0.0.1:1", nil); rec.Code != http.StatusOK {
		t.Fatalf("first client: expected 200, got %d", rec.Code)
	}
	if rec := post(handler, "10.0.0.2:1", nil); rec.Code != http.StatusOK {
		t.Fatalf("second client: expected 200, got %d", rec.Code)
	}
	// without RealIP a forged header does not open a new bucket
	if rec := post(handler, "10.0.0.2:1", map[string]string{"X-Forwarded-For": "203.0.113.9"}); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("forged forwarded header: expected 429, got %d", rec.Code)
	}
	if rec := post(handler, "10.0.0.1:1", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("repeat client: expected 429, got %d", rec.Code)
	}
}

func TestRateLimit_PreflightNotCounted(t *testing.T) {
	handler := RateLimit(NewClientRateLimiter(rate.Every(time.Minute), 1), "contact")(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
		req.RemoteAddr = "10.0.0.5:1"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("preflight %d: expected 200, got %d", i, rec.Code)
		}
	}
	if rec := post(handler, "10.0.0.5:1", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after preflights, got %d", rec.Code)
	}
}

func TestPerMinute_ZeroDisablesLimit(t *testing.T) {
	rl := PerMinute(0, 0)
	for i := 0; i < 100; i++ {
		if !rl.Allow("x") {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
}

func TestEvict(t *testing.T) {
	rl := PerMinute(5, 5)
	rl.Allow("a")
	rl.Allow("b")
	if rl.Len() != 2 {
		t.Fatalf("expected 2 tracked clients, got %d", rl.Len())
	}
	if n := rl.Evict(time.Now()); n != 0 {
		t.Fatalf("expected nothing evicted, got %d", n)
	}
	if n := rl.Evict(time.Now().Add(11 * time.Minute)); n != 2 {
		t.Fatalf("expected 2 evicted, got %d", n)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	if got := ClientIP(req); got != "2001:db8::1" {
		t.Fatalf("expected IPv6 host, got %q", got)
	}
	req.Header.Set("X-Real-IP", "198.51.100.7")
	req.Header.Set("X-Forwarded-For", "198.51.100.8")
	if got := ClientIP(req); got != "2001:db8::1" {
		t.Fatalf("expected proxy headers ignored, got %q", got)
	}
}
