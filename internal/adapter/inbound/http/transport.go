// Package http provides the HTTP transport adapter for the gateway.
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cashcat/cashcat-gateway/internal/port/inbound"
	"github.com/cashcat/cashcat-gateway/internal/service"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// HTTPTransport is the inbound adapter serving the JSON-RPC endpoint,
// /health and /metrics.
type HTTPTransport struct {
	dispatcher     *service.Dispatcher
	server         *http.Server
	addr           string
	endpointPath   string
	allowedOrigins []string
	upstreamBase   string
	trustForwarded bool
	maxBodyBytes   int64
	certFile       string
	keyFile        string
	logger         *slog.Logger
	registry       *prometheus.Registry
	metrics        *Metrics
	healthChecker  *HealthChecker
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithEndpointPath sets the path of the JSON-RPC endpoint. Default is "/mcp".
func WithEndpointPath(path string) Option {
	return func(t *HTTPTransport) {
		if path != "" {
			t.endpointPath = path
		}
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(t *HTTPTransport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithAllowedOrigins sets the CORS origin allowlist. Empty allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(t *HTTPTransport) {
		t.allowedOrigins = origins
	}
}

// WithUpstreamBase fixes the origin the cashcat API is reached at. When
// empty the origin of each inbound request is used.
func WithUpstreamBase(base string) Option {
	return func(t *HTTPTransport) {
		t.upstreamBase = base
	}
}

// WithTrustForwardedHeaders lets X-Forwarded-Proto and X-Forwarded-Host
// choose the cashcat origin when no upstream base is configured. Enable it
// only behind a proxy that sets those headers itself.
func WithTrustForwardedHeaders(trust bool) Option {
	return func(t *HTTPTransport) {
		t.trustForwarded = trust
	}
}

// WithMaxBodyBytes caps the POST body size.
func WithMaxBodyBytes(n int64) Option {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// WithMetrics uses metrics registered on reg instead of a private registry.
func WithMetrics(reg *prometheus.Registry, metrics *Metrics) Option {
	return func(t *HTTPTransport) {
		t.registry = reg
		t.metrics = metrics
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *HTTPTransport) {
		t.healthChecker = hc
	}
}

// NewHTTPTransport creates an HTTP transport serving dispatcher.
func NewHTTPTransport(dispatcher *service.Dispatcher, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		dispatcher:     dispatcher,
		addr:           "127.0.0.1:8080",
		endpointPath:   "/mcp",
		allowedOrigins: []string{},
		maxBodyBytes:   defaultMaxBodyBytes,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.registry == nil {
		t.registry = NewRegistry()
		t.metrics = NewMetrics(t.registry)
	}

	return t
}

// NewRegistry returns a Prometheus registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler builds the routed handler with its middleware chain.
func (t *HTTPTransport) Handler() http.Handler {
	// Middleware order (outermost first):
	// 1. MetricsMiddleware - Record duration and status (MUST be outermost to capture full duration)
	// 2. RequestID - Extract/generate request ID and enrich logger
	// 3. RealIP - Extract client IP from X-Forwarded-For
	// 4. CORS - Answer preflights and set CORS headers
	// 5. Handler - JSON-RPC request handling
	var gateway http.Handler = &gatewayHandler{
		dispatcher:     t.dispatcher,
		upstreamBase:   t.upstreamBase,
		trustForwarded: t.trustForwarded,
		maxBodyBytes:   t.maxBodyBytes,
		metrics:        t.metrics,
	}
	gateway = CORSMiddleware(t.allowedOrigins)(gateway)
	gateway = RealIPMiddleware(gateway)
	gateway = RequestIDMiddleware(t.logger)(gateway)

	mux := http.NewServeMux()
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	} else {
		mux.Handle("/health", healthHandler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{
		Registry: t.registry,
	}))
	mux.Handle(t.endpointPath, gateway)

	return MetricsMiddleware(t.metrics)(mux)
}

// Start begins accepting HTTP connections.
// It blocks until the context is cancelled or an error occurs.
func (t *HTTPTransport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)

	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", t.addr, "endpoint", t.endpointPath)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", t.addr, "endpoint", t.endpointPath)
			err = t.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}

// Compile-time check that HTTPTransport implements the Server interface.
var _ inbound.Server = (*HTTPTransport)(nil)
