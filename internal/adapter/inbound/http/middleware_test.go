package http

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated when absent", incoming: ""},
		{name: "echoed when present", incoming: "abc-123", keep: true},
		{name: "regenerated when too long", incoming: strings.Repeat("x", 129)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			var logger *slog.Logger
			h := RequestIDMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
				logger = LoggerFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set("X-Request-ID", tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("request id missing from context")
			}
			if tt.keep && seen != tt.incoming {
				t.Errorf("request id = %q, want %q", seen, tt.incoming)
			}
			if !tt.keep && seen == tt.incoming {
				t.Errorf("request id %q should have been regenerated", seen)
			}
			if rec.Header().Get("X-Request-ID") != seen {
				t.Errorf("X-Request-ID header = %q, want %q", rec.Header().Get("X-Request-ID"), seen)
			}
			if logger == nil || logger == slog.Default() {
				t.Error("enriched logger not stored in context")
			}
		})
	}
}

func TestLoggerFromContext_Default(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if LoggerFromContext(req.Context()) != slog.Default() {
		t.Error("LoggerFromContext() without middleware should return slog.Default()")
	}
}

func TestExtractRealIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "remote addr", remoteAddr: "10.0.0.1:5555", want: "10.0.0.1"},
		{name: "forwarded for first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, remoteAddr: "10.0.0.1:5555", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, remoteAddr: "10.0.0.1:5555", want: "198.51.100.4"},
		{name: "unparseable remote addr", remoteAddr: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIPFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("client ip = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestOrigin(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		tls     bool
		trust   bool
		headers map[string]string
		want    string
	}{
		{name: "plain", host: "gw.local:8080", want: "http://gw.local:8080"},
		{name: "tls", host: "gw.local", tls: true, want: "https://gw.local"},
		{name: "forwarded untrusted", host: "10.0.0.1", headers: map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "evil.example"}, want: "http://10.0.0.1"},
		{name: "forwarded untrusted keeps tls", host: "gw.local", tls: true, headers: map[string]string{"X-Forwarded-Proto": "http"}, want: "https://gw.local"},
		{name: "forwarded", host: "10.0.0.1", trust: true, headers: map[string]string{"X-Forwarded-Proto": "https", "X-Forwarded-Host": "Cashcat.Example"}, want: "https://cashcat.example"},
		{name: "forwarded list", host: "10.0.0.1", trust: true, headers: map[string]string{"X-Forwarded-Proto": "https, http", "X-Forwarded-Host": "a.example, b.example"}, want: "https://a.example"},
		{name: "bogus proto ignored", host: "gw.local", trust: true, headers: map[string]string{"X-Forwarded-Proto": "gopher"}, want: "http://gw.local"},
		{name: "trusted without headers", host: "gw.local", trust: true, want: "http://gw.local"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			req.Host = tt.host
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			} else {
				req.TLS = nil
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := requestOrigin(req, tt.trust); got != tt.want {
				t.Errorf("requestOrigin() = %q, want %q", got, tt.want)
			}
		})
	}
}
