package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

type contextKey string

const contextKeyClientID contextKey = "clientID"

// maxClientIDLength bounds the X-Client-ID header.
const maxClientIDLength = 128

// ClientIDMiddleware resolves the discovery session key for each request and
// stores it in the context. Oversized ids are rejected.
func ClientIDMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			id := extractClientID(r)
			if len(id) > maxClientIDLength {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "client id too long"})
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyClientID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientID returns the id resolved by ClientIDMiddleware, or derives it
// when the middleware did not run.
func GetClientID(r *http.Request) string {
	if id, ok := r.Context().Value(contextKeyClientID).(string); ok {
		return id
	}
	return extractClientID(r)
}

// extractClientID picks the session key.
// Priority: X-Client-ID header > ?clientId= query param > client IP
func extractClientID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Client-ID")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("clientId")); id != "" {
		return id
	}
	return "ip:" + ClientIP(r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per API request.
func RequestLogger() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Printf("[http] %s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
		})
	}
}
