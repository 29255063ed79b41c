package auth

import (
	"context"
	"strings"
)

// Rejection reasons produced by the gate itself.
const (
	ReasonMissingHeader = "missing Authorization header"
	ReasonNotBearer     = "Authorization header must use the Bearer scheme"
	ReasonEmptyToken    = "empty bearer token"
)

// Verifier checks the raw Authorization header of a request.
type Verifier interface {
	Verify(ctx context.Context, authorization string) Verification
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, authorization string) Verification

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, authorization string) Verification {
	return f(ctx, authorization)
}

// Gate rejects malformed credentials locally and delegates the rest to a Verifier.
type Gate struct {
	verifier Verifier
}

// NewGate creates a Gate delegating to verifier.
func NewGate(verifier Verifier) *Gate {
	return &Gate{verifier: verifier}
}

// Verify checks the Authorization header value.
func (g *Gate) Verify(ctx context.Context, authorization string) Verification {
	if strings.TrimSpace(authorization) == "" {
		return Reject(ReasonMissingHeader)
	}
	token, ok := BearerToken(authorization)
	if !ok {
		return Reject(ReasonNotBearer)
	}
	if token == "" {
		return Reject(ReasonEmptyToken)
	}
	v := g.verifier.Verify(ctx, authorization)
	if !v.Valid && v.Reason == "" {
		v.Reason = "credential rejected"
	}
	return v
}

// BearerToken extracts the token from an Authorization header value.
// The scheme match is case-insensitive.
func BearerToken(authorization string) (string, bool) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(authorization), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
