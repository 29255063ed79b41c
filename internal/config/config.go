// Package config provides configuration types for the cashcat gateway.
//
// Configuration is read from an optional YAML file and CASHCAT_GATEWAY_*
// environment variables. The gateway holds no state of its own, so the
// schema is limited to the listener, the cashcat upstream and the way
// bearer tokens are verified.
package config

import (
	"time"
)

// Auth modes.
const (
	AuthModeVerifier = "verifier"
	AuthModeAPIKeys  = "api_keys"
)

// devAPIKeyHash is the SHA-256 of "dev-api-key".
const devAPIKeyHash = "sha256:6e1e4e1b8f8b36d08901cdb51b97841dfe20f5efd2fd2fd00768971408c46274"

// Config is the top-level configuration for the gateway.
type Config struct {
	// Server configures the HTTP listener and request handling.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Upstream configures the cashcat REST API the tools read from.
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`

	// Auth configures how inbound bearer tokens are verified.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// DevMode enables debug logging and permissive defaults.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// HTTPAddr is the address to listen on (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Defaults to "127.0.0.1:8080" (localhost only) if empty.
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"omitempty,hostname_port"`

	// EndpointPath is the path of the JSON-RPC endpoint. Defaults to "/mcp".
	EndpointPath string `yaml:"endpoint_path" mapstructure:"endpoint_path" validate:"required,startswith=/"`

	// AllowedOrigins lists the CORS origins accepted. Empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins" validate:"omitempty,dive,required"`

	// ToolTimeout bounds a whole tools/call (e.g., "60s"). Defaults to "60s".
	ToolTimeout string `yaml:"tool_timeout" mapstructure:"tool_timeout" validate:"required,duration"`

	// MaxBodyBytes caps the inbound request body. Defaults to 1 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"min=1"`

	// TrustForwardedHeaders derives the cashcat origin from X-Forwarded-Proto
	// and X-Forwarded-Host when Upstream.BaseURL is empty. Only enable behind
	// a proxy that overwrites those headers. Defaults to false (r.Host).
	TrustForwardedHeaders bool `yaml:"trust_forwarded_headers" mapstructure:"trust_forwarded_headers"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// UpstreamConfig configures the cashcat REST API.
type UpstreamConfig struct {
	// BaseURL is the cashcat origin (e.g., "https://cashcat.example").
	// Empty derives the origin from each inbound request.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// APIPrefix is prepended to every endpoint path. Defaults to "/api".
	APIPrefix string `yaml:"api_prefix" mapstructure:"api_prefix" validate:"required,startswith=/"`

	// RequestTimeout bounds one upstream page request. Defaults to "20s".
	RequestTimeout string `yaml:"request_timeout" mapstructure:"request_timeout" validate:"required,duration"`

	// MaxResponseBytes caps one upstream response body. Defaults to 10 MiB.
	MaxResponseBytes int64 `yaml:"max_response_bytes" mapstructure:"max_response_bytes" validate:"min=1"`
}

// AuthConfig configures token verification.
type AuthConfig struct {
	// Mode is "verifier" (default) or "api_keys".
	Mode string `yaml:"mode" mapstructure:"mode" validate:"required,oneof=verifier api_keys"`

	// VerifierURL is called with the caller's Authorization header.
	// Required when Mode is "verifier".
	VerifierURL string `yaml:"verifier_url" mapstructure:"verifier_url" validate:"omitempty,url"`

	// VerifierTimeout bounds one verification request. Defaults to "5s".
	VerifierTimeout string `yaml:"verifier_timeout" mapstructure:"verifier_timeout" validate:"required,duration"`

	// APIKeys are the locally accepted keys. At least one is required when
	// Mode is "api_keys".
	APIKeys []APIKeyConfig `yaml:"api_keys" mapstructure:"api_keys" validate:"omitempty,dive"`
}

// APIKeyConfig defines a locally accepted API key.
type APIKeyConfig struct {
	// KeyHash is "sha256:<64 hex>" or an Argon2id PHC string.
	// Generate with: cashcat-gateway hash-key <key>
	KeyHash string `yaml:"key_hash" mapstructure:"key_hash" validate:"required,key_hash"`

	// Identity names the caller the key authenticates as.
	Identity string `yaml:"identity" mapstructure:"identity" validate:"required"`

	// Revoked keeps the entry on file but rejects the key.
	Revoked bool `yaml:"revoked" mapstructure:"revoked"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	// Bind to localhost only. Network access requires an explicit http_addr.
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Server.EndpointPath == "" {
		c.Server.EndpointPath = "/mcp"
	}
	if c.Server.ToolTimeout == "" {
		c.Server.ToolTimeout = "60s"
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Upstream.APIPrefix == "" {
		c.Upstream.APIPrefix = "/api"
	}
	if c.Upstream.RequestTimeout == "" {
		c.Upstream.RequestTimeout = "20s"
	}
	if c.Upstream.MaxResponseBytes == 0 {
		c.Upstream.MaxResponseBytes = 10 << 20
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = AuthModeVerifier
	}
	if c.Auth.VerifierTimeout == "" {
		c.Auth.VerifierTimeout = "5s"
	}
}

// SetDevDefaults applies permissive defaults for development mode.
// A verifier mode without a verifier URL falls back to a local dev key
// ("dev-api-key"). Applied before validation so required fields are satisfied.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}

	c.Server.LogLevel = "debug"

	if c.Auth.Mode == AuthModeVerifier && c.Auth.VerifierURL == "" {
		c.Auth.Mode = AuthModeAPIKeys
	}
	if c.Auth.Mode == AuthModeAPIKeys && len(c.Auth.APIKeys) == 0 {
		c.Auth.APIKeys = []APIKeyConfig{
			{KeyHash: devAPIKeyHash, Identity: "dev-user"},
		}
	}
}

// ToolTimeoutDuration returns Server.ToolTimeout parsed. Call after Validate.
func (c *Config) ToolTimeoutDuration() time.Duration {
	return mustDuration(c.Server.ToolTimeout)
}

// RequestTimeoutDuration returns Upstream.RequestTimeout parsed. Call after Validate.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return mustDuration(c.Upstream.RequestTimeout)
}

// VerifierTimeoutDuration returns Auth.VerifierTimeout parsed. Call after Validate.
func (c *Config) VerifierTimeoutDuration() time.Duration {
	return mustDuration(c.Auth.VerifierTimeout)
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
