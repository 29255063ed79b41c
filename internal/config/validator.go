package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cashcat/cashcat-gateway/internal/domain/auth"
)

// reservedPaths are served by the transport itself.
var reservedPaths = []string{"/health", "/metrics"}

// RegisterCustomValidators registers the gateway's validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	if err := v.RegisterValidation("key_hash", validateKeyHash); err != nil {
		return fmt.Errorf("failed to register key_hash validator: %w", err)
	}
	return nil
}

// validateDuration accepts positive Go duration strings ("30s", "1m30s").
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// validateKeyHash accepts "sha256:<64 hex>" or an Argon2id PHC string.
func validateKeyHash(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch auth.DetectHashType(value) {
	case "argon2id":
		return true
	case "sha256":
		return strings.HasPrefix(value, "sha256:")
	default:
		return false
	}
}

// Validate validates the Config using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateAuthMode(); err != nil {
		return err
	}
	if err := c.validateForwardedHeaders(); err != nil {
		return err
	}
	return c.validateEndpointPath()
}

// validateForwardedHeaders rejects trust_forwarded_headers alongside a fixed
// upstream origin, where it would be silently ignored.
func (c *Config) validateForwardedHeaders() error {
	if c.Server.TrustForwardedHeaders && c.Upstream.BaseURL != "" {
		return errors.New("server: trust_forwarded_headers has no effect when upstream.base_url is set")
	}
	return nil
}

// validateAuthMode checks the fields each auth mode depends on.
func (c *Config) validateAuthMode() error {
	switch c.Auth.Mode {
	case AuthModeVerifier:
		if c.Auth.VerifierURL == "" {
			return errors.New("auth: verifier_url is required when mode is verifier")
		}
	case AuthModeAPIKeys:
		if len(c.Auth.APIKeys) == 0 {
			return errors.New("auth: at least one api_keys entry is required when mode is api_keys")
		}
	}
	return nil
}

// validateEndpointPath keeps the JSON-RPC endpoint off the built-in routes.
func (c *Config) validateEndpointPath() error {
	for _, p := range reservedPaths {
		if c.Server.EndpointPath == p {
			return fmt.Errorf("server: endpoint_path %q is reserved", p)
		}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "duration":
		return fmt.Sprintf("%s must be a positive duration such as \"30s\"", field)
	case "key_hash":
		return fmt.Sprintf("%s must be 'sha256:<64 hex>' or an argon2id hash", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
