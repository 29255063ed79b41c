// Package ctxkey defines context key types shared between the transport and service layers.
// It must not import any other internal package.
package ctxkey

// LoggerKey is the context key type for the request-scoped logger.
type LoggerKey struct{}

// RequestIDKey is the context key type for the inbound request id.
type RequestIDKey struct{}

// ClientIPKey is the context key type for the resolved client address.
type ClientIPKey struct{}
