// Package cashcat provides the outbound adapter for the cashcat REST API.
package cashcat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cashcat/cashcat-gateway/internal/domain/dataset"
	"github.com/cashcat/cashcat-gateway/internal/domain/rpc"
	"github.com/cashcat/cashcat-gateway/internal/port/outbound"
)

const (
	// defaultAPIPrefix is the path the cashcat API is mounted at.
	defaultAPIPrefix = "/api"

	// defaultMaxResponseBytes caps a single page body.
	defaultMaxResponseBytes = 10 * 1024 * 1024 // 10MB
)

// Page outcomes reported to the observer.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Observer is told about every page request the client makes.
type Observer func(endpoint, outcome string)

// Client reads pages from the cashcat API on behalf of a caller.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	httpClient       *http.Client
	apiPrefix        string
	maxResponseBytes int64
	observer         Observer
	logger           *slog.Logger
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if c.httpClient != nil && d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithAPIPrefix sets the path prefix joined before every endpoint.
func WithAPIPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.apiPrefix = prefix
	}
}

// WithMaxResponseBytes caps the size of a page body.
func WithMaxResponseBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// WithObserver registers a callback invoked after every page request.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a cashcat API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiPrefix:        defaultAPIPrefix,
		maxResponseBytes: defaultMaxResponseBytes,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetPage fetches one page from endpoint. The caller's Authorization header
// is forwarded unchanged. Every failure is a *dataset.UpstreamError.
func (c *Client) GetPage(ctx context.Context, call rpc.CallContext, endpoint string, query map[string]string) (*dataset.Page, error) {
	page, err := c.getPage(ctx, call, endpoint, query)
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	if c.observer != nil {
		c.observer(endpoint, outcome)
	}
	return page, err
}

func (c *Client) getPage(ctx context.Context, call rpc.CallContext, endpoint string, query map[string]string) (*dataset.Page, error) {
	target, err := c.endpointURL(call.BaseOrigin, endpoint, query)
	if err != nil {
		return nil, &dataset.UpstreamError{Endpoint: endpoint, Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &dataset.UpstreamError{Endpoint: endpoint, Reason: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if call.AuthHeader != "" {
		req.Header.Set("Authorization", call.AuthHeader)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &dataset.UpstreamError{Endpoint: endpoint, Reason: requestFailure(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	// Read one byte past the cap so an oversize body is detectable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, &dataset.UpstreamError{Endpoint: endpoint, Status: resp.StatusCode, Reason: requestFailure(err)}
	}
	if int64(len(body)) > c.maxResponseBytes {
		return nil, &dataset.UpstreamError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Reason:   fmt.Sprintf("response body exceeds %d bytes", c.maxResponseBytes),
		}
	}

	c.logger.Debug("cashcat page fetched",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &dataset.UpstreamError{Endpoint: endpoint, Status: resp.StatusCode, Reason: statusReason(resp.StatusCode, body)}
	}

	page, reason := decodePage(body)
	if reason != "" {
		return nil, &dataset.UpstreamError{Endpoint: endpoint, Status: resp.StatusCode, Reason: reason}
	}
	return page, nil
}

// endpointURL joins origin, prefix and endpoint and encodes query with sorted keys.
func (c *Client) endpointURL(origin, endpoint string, query map[string]string) (string, error) {
	if origin == "" {
		return "", errors.New("no upstream origin configured")
	}
	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid upstream origin %q", origin)
	}
	u := base.JoinPath(c.apiPrefix, endpoint)

	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// decodePage enforces the {data: [...], meta?: {...}} shape.
func decodePage(body []byte) (*dataset.Page, string) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var envelope struct {
		Data json.RawMessage `json:"data"`
		Meta json.RawMessage `json:"meta"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, "invalid JSON response"
	}
	if dec.More() {
		return nil, "invalid JSON response"
	}

	page := &dataset.Page{}
	if !isJSONArray(envelope.Data) {
		return nil, "response missing data array"
	}
	if err := decodeNumbers(envelope.Data, &page.Data); err != nil {
		return nil, "invalid JSON response"
	}
	if page.Data == nil {
		page.Data = []any{}
	}

	if len(envelope.Meta) > 0 && string(envelope.Meta) != "null" {
		if envelope.Meta[0] != '{' {
			return nil, "response meta is not an object"
		}
		if err := decodeNumbers(envelope.Meta, &page.Meta); err != nil {
			return nil, "invalid JSON response"
		}
	}
	return page, ""
}

func decodeNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func isJSONArray(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '['
}

// statusReason extracts error.message from a failure body, falling back to the status.
func statusReason(status int, body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && len(payload.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "":
			return fmt.Sprintf("%s (HTTP %d)", nested.Message, status)
		case json.Unmarshal(payload.Error, &flat) == nil && flat != "":
			return fmt.Sprintf("%s (HTTP %d)", flat, status)
		}
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("HTTP %d %s", status, text)
	}
	return fmt.Sprintf("HTTP %d", status)
}

func requestFailure(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return "request failed: " + strings.TrimSpace(err.Error())
}

// CloseIdleConnections releases idle keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Compile-time interface verification.
var _ outbound.PageSource = (*Client)(nil)
