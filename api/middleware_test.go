package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientIDMiddleware(t *testing.T) {
	var seen string
	handler := ClientIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClientID(r)
	}))

	tests := []struct {
		name    string
		target  string
		header  string
		remote  string
		want    string
		wantErr bool
	}{
		{name: "header", target: "/api/discover", header: " tab-1 ", remote: "10.0.0.1:1", want: "tab-1"},
		{name: "query", target: "/api/discover/state?clientId=tab-2", remote: "10.0.0.1:1", want: "tab-2"},
		{name: "header wins over query", target: "/api/discover?clientId=q", header: "h", want: "h"},
		{name: "ip fallback", target: "/api/discover", remote: "10.0.0.9:5555", want: "ip:10.0.0.9"},
		{name: "too long", target: "/api/discover", header: strings.Repeat("x", 200), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}
			if tt.header != "" {
				req.Header.Set("X-Client-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if tt.wantErr {
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("expected 400, got %d", rec.Code)
				}
				return
			}
			if seen != tt.want {
				t.Fatalf("expected client id %q, got %q", tt.want, seen)
			}
		})
	}
}

func TestRequestLoggerPassesStatus(t *testing.T) {
	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
}
