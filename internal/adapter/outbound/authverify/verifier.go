// Package authverify checks bearer credentials against an external HTTP
// verification endpoint.
package authverify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cashcat/cashcat-gateway/internal/domain/auth"
)

// Rejection reasons.
const (
	ReasonInvalidToken = "invalid or expired token"
	ReasonUnavailable  = "token verification unavailable"
)

// maxBodyBytes caps the verifier response read.
const maxBodyBytes = 64 * 1024

// Verifier forwards the Authorization header to a verification URL.
type Verifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) {
		v.httpClient = client
	}
}

// WithTimeout sets the verification request timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if v.httpClient != nil && d > 0 {
			v.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the verifier logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// New creates a Verifier calling url.
func New(url string, opts ...Option) *Verifier {
	v := &Verifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type verifyResponse struct {
	Valid    *bool           `json:"valid"`
	Error    json.RawMessage `json:"error"`
	Identity *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"identity"`
}

// Verify implements auth.Verifier.
func (v *Verifier) Verify(ctx context.Context, authorization string) auth.Verification {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		v.logger.Error("failed to build verification request", "error", err)
		return auth.Reject(ReasonUnavailable)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Warn("token verification request failed", "error", err)
		return auth.Reject(ReasonUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	var payload verifyResponse
	decoded := json.Unmarshal(body, &payload) == nil

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decoded && payload.Valid != nil && !*payload.Valid {
			return auth.Reject(errorReason(payload.Error, ReasonInvalidToken))
		}
		var identity *auth.Identity
		if decoded && payload.Identity != nil && payload.Identity.ID != "" {
			identity = &auth.Identity{ID: payload.Identity.ID, Name: payload.Identity.Name}
		}
		return auth.Accept(identity)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if !decoded {
			return auth.Reject(ReasonInvalidToken)
		}
		return auth.Reject(errorReason(payload.Error, ReasonInvalidToken))
	default:
		v.logger.Warn("token verifier returned unexpected status", "status", resp.StatusCode)
		return auth.Reject(ReasonUnavailable)
	}
}

// errorReason reads error as a string or {message}, falling back to fallback.
func errorReason(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}
	var nested struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
		return nested.Message
	}
	return fallback
}

var _ auth.Verifier = (*Verifier)(nil)
