package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"spot/internal/metrics"
)

// limiterEntry holds a rate limiter and last-seen timestamp for cleanup.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter manages one token bucket per client key.
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	maxIdle  time.Duration
}

// NewClientRateLimiter creates a limiter that allows r events per second per
// client with the given burst. For "5 per minute" pass rate.Every(12*time.Second), 5.
func NewClientRateLimiter(r rate.Limit, burst int) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    burst,
		maxIdle:  10 * time.Minute,
	}
}

// PerMinute builds a limiter from a requests-per-minute setting.
func PerMinute(n, burst int) *ClientRateLimiter {
	if n <= 0 {
		return NewClientRateLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = n
	}
	return NewClientRateLimiter(rate.Every(time.Minute/time.Duration(n)), burst)
}

// Allow consumes one token for key.
func (rl *ClientRateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

func (rl *ClientRateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Len returns the number of tracked clients.
func (rl *ClientRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Evict drops clients not seen since maxIdle before now.
func (rl *ClientRateLimiter) Evict(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.maxIdle {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// RunCleanup evicts idle clients every minute until ctx is done.
func (rl *ClientRateLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Evict(now)
		}
	}
}

// ClientIP returns the address resolved by RealIP, or the socket peer when
// that middleware did not run. Forwarding headers are never read here.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(contextKeyClientIP).(string); ok {
		return ip
	}
	return peerHost(r)
}

func peerHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimit returns middleware limiting each client IP. route labels the
// rejection metric.
func RateLimit(rl *ClientRateLimiter, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || rl.Allow(ClientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			metrics.RateLimited.WithLabelValues(route).Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
		})
	}
}
