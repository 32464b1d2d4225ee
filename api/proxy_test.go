package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func mustProxies(t *testing.T, entries ...string) *TrustedProxies {
	t.Helper()
	p, err := ParseTrustedProxies(entries)
	if err != nil {
		t.Fatalf("parse trusted proxies: %v", err)
	}
	return p
}

func TestParseTrustedProxies(t *testing.T) {
	p := mustProxies(t, "10.0.0.0/8", " 192.168.1.10 ", "", "::1")
	if p.Len() != 3 {
		t.Fatalf("expected 3 ranges, got %d", p.Len())
	}
	for _, bad := range []string{"10.0.0.0/33", "not-an-ip"} {
		if _, err := ParseTrustedProxies([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestTrustedProxiesResolve(t *testing.T) {
	proxies := mustProxies(t, "10.0.0.0/8")

	tests := []struct {
		name    string
		proxies *TrustedProxies
		remote  string
		xff     string
		realIP  string
		want    string
	}{
		{name: "untrusted peer spoofing xff", proxies: proxies, remote: "203.0.113.5:4000", xff: "198.51.100.1", want: "203.0.113.5"},
		{name: "untrusted peer spoofing x-real-ip", proxies: proxies, remote: "203.0.113.5:4000", realIP: "198.51.100.1", want: "203.0.113.5"},
		{name: "nil set trusts nobody", proxies: nil, remote: "10.0.0.2:4000", xff: "198.51.100.1", want: "10.0.0.2"},
		{name: "trusted peer", proxies: proxies, remote: "10.0.0.2:4000", xff: "198.51.100.1", want: "198.51.100.1"},
		{name: "client-forged leftmost hop is skipped", proxies: proxies, remote: "10.0.0.2:4000", xff: "1.2.3.4, 198.51.100.1, 10.0.0.3", want: "198.51.100.1"},
		{name: "all hops trusted", proxies: proxies, remote: "10.0.0.2:4000", xff: "10.1.1.1, 10.0.0.3", want: "10.1.1.1"},
		{name: "garbage hop stops the walk", proxies: proxies, remote: "10.0.0.2:4000", xff: "198.51.100.1, junk", want: "10.0.0.2"},
		{name: "x-real-ip from trusted peer", proxies: proxies, remote: "10.0.0.2:4000", realIP: "198.51.100.9", want: "198.51.100.9"},
		{name: "ipv4-mapped peer", proxies: proxies, remote: "[::ffff:10.0.0.2]:4000", xff: "198.51.100.1", want: "198.51.100.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := tt.proxies.Resolve(req); got != tt.want {
				t.Fatalf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitBehindRealIP(t *testing.T) {
	limited := RateLimit(NewClientRateLimiter(rate.Every(time.Minute), 1), "contact")(okHandler())
	handler := RealIP(mustProxies(t, "10.0.0.0/8"))(limited)

	// direct caller rotating xff values still shares one bucket
	if rec := post(handler, "203.0.113.5:1", map[string]string{"X-Forwarded-For": "198.51.100.1"}); rec.Code != http.StatusOK {
		t.Fatalf("first direct request: expected 200, got %d", rec.Code)
	}
	if rec := post(handler, "203.0.113.5:1", map[string]string{"X-Forwarded-For": "198.51.100.2"}); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("spoofed direct request: expected 429, got %d", rec.Code)
	}

	// distinct clients behind the proxy get their own buckets
	if rec := post(handler, "10.0.0.2:1", map[string]string{"X-Forwarded-For": "198.51.100.7"}); rec.Code != http.StatusOK {
		t.Fatalf("proxied client A: expected 200, got %d", rec.Code)
	}
	if rec := post(handler, "10.0.0.2:1", map[string]string{"X-Forwarded-For": "198.51.100.8"}); rec.Code != http.StatusOK {
		t.Fatalf("proxied client B: expected 200, got %d", rec.Code)
	}
	if rec := post(handler, "10.0.0.2:1", map[string]string{"X-Forwarded-For": "198.51.100.7"}); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("proxied client A again: expected 429, got %d", rec.Code)
	}
}
